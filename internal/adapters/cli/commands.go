package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/jsamuelsen/quote-revisions/internal/adapters/store"
	"github.com/jsamuelsen/quote-revisions/internal/domain"
	"github.com/jsamuelsen/quote-revisions/internal/ports"
)

// quoteFields are the content flags shared by the create commands.
type quoteFields struct {
	customerID string
	quoteNo    string
	title      string
	notes      string
	validUntil string
	total      string
	final      string
	discount   string
	items      string
	bundleID   string
}

func (f *quoteFields) register(flags *pflag.FlagSet) {
	flags.StringVar(&f.customerID, "customer", "", "customer id")
	flags.StringVar(&f.quoteNo, "quote-no", "", "quote number (generated when empty)")
	flags.StringVar(&f.title, "title", "", "quote title")
	flags.StringVar(&f.notes, "notes", "", "free-form notes")
	flags.StringVar(&f.validUntil, "valid-until", "", "expiry date, YYYY-MM-DD or RFC 3339")
	flags.StringVar(&f.total, "total", "", "total amount")
	flags.StringVar(&f.final, "final", "", "final amount")
	flags.StringVar(&f.discount, "discount", "", "discount amount")
	flags.StringVar(&f.items, "items", "", "line items as a JSON document")
	flags.StringVar(&f.bundleID, "bundle", "", "bundle container id")
}

func (f *quoteFields) seed(tenantID string) (*domain.RevisionSeed, error) {
	validUntil, err := parseDate(f.validUntil)
	if err != nil {
		return nil, err
	}

	items, err := parseItems(f.items)
	if err != nil {
		return nil, err
	}

	seed := &domain.RevisionSeed{
		TenantID:       tenantID,
		CustomerID:     f.customerID,
		QuoteNo:        f.quoteNo,
		Title:          f.title,
		Notes:          f.notes,
		ValidUntil:     validUntil,
		TotalAmount:    domain.Decimal(f.total),
		FinalAmount:    domain.Decimal(f.final),
		DiscountAmount: domain.Decimal(f.discount),
		Items:          items,
	}

	if f.bundleID != "" {
		seed.BundleID = &f.bundleID
	}

	return seed, nil
}

// overrides returns the fields whose flags were set on cmd.
func (f *quoteFields) overrides(cmd *cobra.Command) (*domain.RevisionOverrides, error) {
	changed := cmd.Flags().Changed
	o := &domain.RevisionOverrides{}

	decimal := func(name, value string) *domain.Decimal {
		if !changed(name) {
			return nil
		}

		d := domain.Decimal(value)

		return &d
	}

	o.TotalAmount = decimal("total", f.total)
	o.FinalAmount = decimal("final", f.final)
	o.DiscountAmount = decimal("discount", f.discount)

	if changed("title") {
		o.Title = &f.title
	}

	if changed("notes") {
		o.Notes = &f.notes
	}

	if changed("bundle") {
		o.BundleID = &f.bundleID
	}

	if changed("valid-until") {
		validUntil, err := parseDate(f.validUntil)
		if err != nil {
			return nil, err
		}

		o.ValidUntil = validUntil
	}

	if changed("items") {
		items, err := parseItems(f.items)
		if err != nil {
			return nil, err
		}

		o.Items = items
	}

	return o, nil
}

func (s *session) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the store schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, err := s.open(cmd.Context())
			if err != nil {
				return err
			}

			if err := store.Migrate(cmd.Context(), engine.Store); err != nil {
				return err
			}

			fmt.Fprintln(s.opts.Out, "✓ Schema is up to date")

			return nil
		},
	}
}

func (s *session) lineageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lineage",
		Short: "Begin and inspect quote lineages",
	}

	var fields quoteFields

	begin := &cobra.Command{
		Use:   "begin",
		Short: "Create version 1 of a new lineage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tenantID, err := s.tenant()
			if err != nil {
				return err
			}

			seed, err := fields.seed(tenantID)
			if err != nil {
				return err
			}

			engine, err := s.open(cmd.Context())
			if err != nil {
				return err
			}

			rev, err := engine.Revisions.BeginLineage(cmd.Context(), seed, s.actor)
			if err != nil {
				return err
			}

			return s.printRevision(rev, "Created")
		},
	}
	fields.register(begin.Flags())
	_ = begin.MarkFlagRequired("customer")

	show := &cobra.Command{
		Use:   "show <root-id>",
		Short: "List every revision of a lineage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantID, err := s.tenant()
			if err != nil {
				return err
			}

			engine, err := s.open(cmd.Context())
			if err != nil {
				return err
			}

			lineage, err := engine.Revisions.ListLineage(cmd.Context(), args[0], tenantID)
			if err != nil {
				return err
			}

			return s.printLineage(lineage)
		},
	}

	active := &cobra.Command{
		Use:   "active <root-id>",
		Short: "Show the active revision of a lineage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantID, err := s.tenant()
			if err != nil {
				return err
			}

			engine, err := s.open(cmd.Context())
			if err != nil {
				return err
			}

			rev, err := engine.Revisions.ActiveRevision(cmd.Context(), args[0], tenantID)
			if err != nil {
				return err
			}

			return s.printRevision(rev, "Active")
		},
	}

	cmd.AddCommand(begin, show, active)

	return cmd
}

func (s *session) versionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Create, activate and close revisions",
	}

	var fields quoteFields

	next := &cobra.Command{
		Use:   "next <prior-id>",
		Short: "Derive the next version from a prior revision",
		Long: `Derive the next version of a lineage. Flags that are set replace the
prior revision's values; everything else is copied. The bundle never changes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantID, err := s.tenant()
			if err != nil {
				return err
			}

			overrides, err := fields.overrides(cmd)
			if err != nil {
				return err
			}

			engine, err := s.open(cmd.Context())
			if err != nil {
				return err
			}

			// Tenant-scoped feature flags apply as they do for API callers.
			ctx := ports.WithFeatureFlagUser(cmd.Context(), &ports.FeatureFlagUser{ID: s.actor, TenantID: tenantID})

			rev, err := engine.Revisions.CreateNextVersion(ctx, args[0], tenantID, s.actor, overrides)
			if err != nil {
				return err
			}

			return s.printRevision(rev, "Created")
		},
	}
	fields.register(next.Flags())

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Show one revision",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantID, err := s.tenant()
			if err != nil {
				return err
			}

			engine, err := s.open(cmd.Context())
			if err != nil {
				return err
			}

			rev, err := engine.Revisions.GetRevision(cmd.Context(), args[0], tenantID)
			if err != nil {
				return err
			}

			return s.printRevision(rev, "Revision")
		},
	}

	activate := &cobra.Command{
		Use:   "activate <id>",
		Short: "Make a revision the active one of its lineage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantID, err := s.tenant()
			if err != nil {
				return err
			}

			engine, err := s.open(cmd.Context())
			if err != nil {
				return err
			}

			rev, err := engine.Revisions.ActivateVersion(cmd.Context(), args[0], tenantID, s.actor)
			if err != nil {
				return err
			}

			return s.printRevision(rev, "Activated")
		},
	}

	var status string

	closeCmd := &cobra.Command{
		Use:   "close <id>",
		Short: "Move a revision to a terminal status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantID, err := s.tenant()
			if err != nil {
				return err
			}

			target := domain.LifecycleStatus(strings.ToUpper(status))
			if !target.IsTerminal() {
				return fmt.Errorf("invalid status: %s\nValid statuses: ACCEPTED, REJECTED, EXPIRED, CANCELLED", status)
			}

			engine, err := s.open(cmd.Context())
			if err != nil {
				return err
			}

			rev, err := engine.Revisions.CloseVersion(cmd.Context(), args[0], tenantID, s.actor, target)
			if err != nil {
				return err
			}

			return s.printRevision(rev, "Closed")
		},
	}
	closeCmd.Flags().StringVar(&status, "status", "", "terminal status: accepted, rejected, expired or cancelled")
	_ = closeCmd.MarkFlagRequired("status")

	cmd.AddCommand(next, get, activate, closeCmd)

	return cmd
}

func (s *session) bundleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bundle",
		Short: "Create bundle containers and list their members",
	}

	var fields quoteFields

	create := &cobra.Command{
		Use:   "create",
		Short: "Create a bundle container",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tenantID, err := s.tenant()
			if err != nil {
				return err
			}

			seed, err := fields.seed(tenantID)
			if err != nil {
				return err
			}

			engine, err := s.open(cmd.Context())
			if err != nil {
				return err
			}

			rev, err := engine.Revisions.CreateBundleContainer(cmd.Context(), seed, s.actor)
			if err != nil {
				return err
			}

			return s.printRevision(rev, "Created bundle")
		},
	}
	fields.register(create.Flags())

	members := &cobra.Command{
		Use:   "members <bundle-id>",
		Short: "List the member lineages of a bundle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantID, err := s.tenant()
			if err != nil {
				return err
			}

			engine, err := s.open(cmd.Context())
			if err != nil {
				return err
			}

			lineages, err := engine.Revisions.ListBundle(cmd.Context(), args[0], tenantID)
			if err != nil {
				return err
			}

			return s.printBundle(args[0], lineages)
		},
	}

	cmd.AddCommand(create, members)

	return cmd
}

func (s *session) archiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Write lineage snapshots to the archive bucket",
	}

	lineage := &cobra.Command{
		Use:   "lineage <root-id>",
		Short: "Archive one lineage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantID, err := s.tenant()
			if err != nil {
				return err
			}

			engine, err := s.open(cmd.Context())
			if err != nil {
				return err
			}

			if engine.Archive == nil {
				return errArchiveDisabled
			}

			result, err := engine.Archive.ExportLineage(cmd.Context(), args[0], tenantID)
			if err != nil {
				return err
			}

			return s.printExport(result)
		},
	}

	bundle := &cobra.Command{
		Use:   "bundle <bundle-id>",
		Short: "Archive every member lineage of a bundle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantID, err := s.tenant()
			if err != nil {
				return err
			}

			engine, err := s.open(cmd.Context())
			if err != nil {
				return err
			}

			if engine.Archive == nil {
				return errArchiveDisabled
			}

			results, err := engine.Archive.ExportBundle(cmd.Context(), args[0], tenantID)
			if err != nil {
				return err
			}

			return s.printExport(results...)
		},
	}

	cmd.AddCommand(lineage, bundle)

	return cmd
}

var errArchiveDisabled = errors.New("the archive is not configured\nHint: set archive.enabled and archive.bucket")

func parseDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil //nolint:nilnil // no date given
	}

	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}

	return nil, fmt.Errorf("invalid date %q: use YYYY-MM-DD or RFC 3339", value)
}

func parseItems(value string) (json.RawMessage, error) {
	if value == "" {
		return nil, nil
	}

	if !json.Valid([]byte(value)) {
		return nil, errors.New("--items is not valid JSON")
	}

	return json.RawMessage(value), nil
}
