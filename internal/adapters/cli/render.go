package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/jsamuelsen/quote-revisions/internal/adapters/http/dto"
	"github.com/jsamuelsen/quote-revisions/internal/app"
	"github.com/jsamuelsen/quote-revisions/internal/domain"
)

var (
	activeColor   = color.New(color.FgGreen, color.Bold)
	draftColor    = color.New(color.FgYellow)
	closedColor   = color.New(color.FgRed)
	acceptedColor = color.New(color.FgCyan)
	markerColor   = color.New(color.FgHiMagenta)
)

// statusLabel colors a lifecycle status for terminal output.
func statusLabel(status domain.LifecycleStatus) string {
	switch status {
	case domain.StatusActive:
		return activeColor.Sprint(status)
	case domain.StatusDraft:
		return draftColor.Sprint(status)
	case domain.StatusAccepted:
		return acceptedColor.Sprint(status)
	default:
		return closedColor.Sprint(status)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

func (s *session) printRevision(rev *domain.QuoteRevision, verb string) error {
	out := s.opts.Out

	if s.asJSON {
		return writeJSON(out, dto.NewRevisionResponse(rev))
	}

	fmt.Fprintf(out, "✓ %s %s (v%d of %s)\n", verb, rev.ID, rev.VersionNumber, rev.RootID)
	fmt.Fprintf(out, "  Quote no: %s\n", rev.QuoteNo)
	fmt.Fprintf(out, "  Status:   %s\n", statusLabel(rev.LifecycleStatus))

	if rev.IsActive {
		fmt.Fprintf(out, "  Active:   %s\n", markerColor.Sprint("yes"))
	}

	if rev.IsBundleContainer {
		fmt.Fprintln(out, "  Bundle container")
	}

	if rev.BundleID != nil {
		fmt.Fprintf(out, "  Bundle:   %s\n", *rev.BundleID)
	}

	if rev.Title != "" {
		fmt.Fprintf(out, "  Title:    %s\n", rev.Title)
	}

	if rev.FinalAmount != "" {
		fmt.Fprintf(out, "  Final:    %s\n", rev.FinalAmount)
	}

	return nil
}

func (s *session) printLineage(lineage domain.Lineage) error {
	if s.asJSON {
		return writeJSON(s.opts.Out, dto.NewLineageResponse(lineage))
	}

	writeLineageTable(s.opts.Out, lineage)

	return nil
}

func writeLineageTable(out io.Writer, lineage domain.Lineage) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tID\tQUOTE NO\tSTATUS\tTOTAL\tFINAL\tCREATED BY\tCREATED")
	fmt.Fprintln(w, "-------\t--\t--------\t------\t-----\t-----\t----------\t-------")

	for _, rev := range lineage {
		marker := ""
		if rev.IsActive {
			marker = markerColor.Sprint(" *")
		}

		fmt.Fprintf(w, "%d%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			rev.VersionNumber, marker,
			rev.ID,
			rev.QuoteNo,
			statusLabel(rev.LifecycleStatus),
			dash(string(rev.TotalAmount)),
			dash(string(rev.FinalAmount)),
			dash(rev.CreatedBy),
			rev.CreatedAt.Format("2006-01-02 15:04"),
		)
	}

	_ = w.Flush()
}

func (s *session) printBundle(bundleID string, lineages []domain.Lineage) error {
	out := s.opts.Out

	if s.asJSON {
		return writeJSON(out, dto.NewBundleResponse(bundleID, lineages))
	}

	if len(lineages) == 0 {
		fmt.Fprintf(out, "Bundle %s has no members\n", bundleID)
		return nil
	}

	for i, lineage := range lineages {
		if i > 0 {
			fmt.Fprintln(out)
		}

		fmt.Fprintf(out, "Lineage %s\n", lineage[0].RootID)
		writeLineageTable(out, lineage)
	}

	return nil
}

func (s *session) printExport(results ...*app.ExportResult) error {
	out := s.opts.Out

	if s.asJSON {
		refs := make([]dto.SnapshotRef, 0, len(results))
		for _, r := range results {
			refs = append(refs, dto.SnapshotRef{Key: r.Key, RootID: r.RootID, Revisions: r.Revisions})
		}

		return writeJSON(out, &dto.ExportResponse{Snapshots: refs})
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ROOT\tREVISIONS\tKEY")

	for _, r := range results {
		fmt.Fprintf(w, "%s\t%d\t%s\n", r.RootID, r.Revisions, r.Key)
	}

	return w.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}

	return s
}
