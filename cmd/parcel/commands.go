package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dukerupert/parcel/internal/address"
	"github.com/dukerupert/parcel/internal/shipping"
	"github.com/dukerupert/parcel/internal/telemetry"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var outcomeColors = map[string]*color.Color{
	"split":    color.New(color.FgHiGreen),
	"fallback": color.New(color.FgHiYellow),
	"bypass":   color.New(color.FgHiBlue),
}

// colorOutcome highlights the split outcome on terminals. fatih/color drops
// the escape codes when stdout is not a terminal.
func colorOutcome(outcome string) string {
	if c, ok := outcomeColors[outcome]; ok {
		return c.Sprint(outcome)
	}
	return outcome
}

func newSplitCmd(a *app) *cobra.Command {
	var country string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "split [street line]",
		Short: "Decompose a street line into street, number and suffix",
		Example: `  parcel split "Plein 1940-45 3b"
  parcel split --country BE "Kerkstraat 12 A"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := strings.Join(args, " ")
			parts := address.Split(raw, country)

			if asJSON {
				return writeJSON(a.out, parts)
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "street\t%s\n", parts.Street)
			if parts.Number > 0 {
				fmt.Fprintf(tw, "number\t%d\n", parts.Number)
			}
			if parts.NumberSuffix != "" {
				fmt.Fprintf(tw, "suffix\t%s\n", parts.NumberSuffix)
			}
			fmt.Fprintf(tw, "full\t%s\n", parts.FullStreet)
			fmt.Fprintf(tw, "outcome\t%s\n", colorOutcome(telemetry.SplitOutcome(country, parts)))
			return tw.Flush()
		},
	}
	cmd.Flags().StringVarP(&country, "country", "c", "NL", "ISO 3166-1 country code of the recipient")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newCreateCmd(a *app) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register consignments from a JSON file as concepts",
		Long: `Reads a JSON array of consignments, for example

  [{"cc": "NL", "person": "Piet", "full_street": "Koestraat 55",
    "postal_code": "2231JE", "city": "Katwijk", "signature": true}]

and registers them as MyParcel concepts. Use --file - to read stdin.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := a.apiKey()
			if err != nil {
				return err
			}

			reqs, err := readRequests(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}

			col := &shipping.Collection{}
			for i, req := range reqs {
				cons, err := req.Consignment(key)
				if err != nil {
					return fmt.Errorf("consignment %d: %w", i, err)
				}
				if err := col.Add(cons); err != nil {
					return err
				}
			}

			if err := a.provider(a).CreateConcepts(cmd.Context(), col); err != nil {
				return err
			}
			return printShipments(a.out, col)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON file with consignments, - for stdin")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status [id...]",
		Short: "Show the current state of shipments",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			col, err := a.registered(args)
			if err != nil {
				return err
			}
			if err := a.provider(a).Refresh(cmd.Context(), col, shipping.DefaultRefreshSize); err != nil {
				return err
			}
			return printShipments(a.out, col)
		},
	}
}

func newRecentCmd(a *app) *cobra.Command {
	var size int

	cmd := &cobra.Command{
		Use:   "recent",
		Short: "List the most recent shipments of the account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := a.apiKey()
			if err != nil {
				return err
			}
			col, err := a.provider(a).Recent(cmd.Context(), key, size)
			if err != nil {
				return err
			}
			return printShipments(a.out, col)
		},
	}
	cmd.Flags().IntVar(&size, "size", 30, "number of shipments")
	return cmd
}

func newLabelsCmd(a *app) *cobra.Command {
	var (
		out       string
		paper     string
		positions string
		link      bool
	)

	cmd := &cobra.Command{
		Use:   "labels [id...]",
		Short: "Download the labels of shipments",
		Example: `  parcel labels 1234 1235 --format A4 --position 2 --out labels.pdf
  parcel labels 1234 --link`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := shipping.ParseLabelFormat(paper, positions)
			if err != nil {
				return err
			}
			col, err := a.registered(args)
			if err != nil {
				return err
			}
			provider := a.provider(a)

			if link {
				url, err := provider.LabelLink(cmd.Context(), col, format)
				if err != nil {
					return err
				}
				fmt.Fprintln(a.out, url)
				return nil
			}

			pdf, err := provider.LabelPDF(cmd.Context(), col, format)
			if err != nil {
				return err
			}
			if out == "" {
				out = shipping.LabelFilename(time.Now())
			}
			if err := os.WriteFile(out, pdf, 0o644); err != nil {
				return fmt.Errorf("failed to write labels: %w", err)
			}
			fmt.Fprintf(a.out, "wrote %s (%d bytes, %s)\n", out, len(pdf), format)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output PDF file (default myparcel-label-<time>.pdf)")
	cmd.Flags().StringVar(&paper, "format", "", "paper format, A4 or A6 (default A6)")
	cmd.Flags().StringVar(&positions, "position", "", "A4 start position 1-4, or a list such as 1;3")
	cmd.Flags().BoolVar(&link, "link", false, "print a download link instead of writing the PDF")
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id...]",
		Short: "Delete concepts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			col, err := a.registered(args)
			if err != nil {
				return err
			}
			ids, _ := col.IDs()
			if err := a.provider(a).DeleteConcepts(cmd.Context(), col); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "deleted %s\n", joinInts(ids))
			return nil
		},
	}
}

func newReturnMailCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "return-mail [id]",
		Short: "Mail the recipient a return label for a shipment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			col, err := a.registered(args)
			if err != nil {
				return err
			}
			provider := a.provider(a)
			if err := provider.Refresh(cmd.Context(), col, shipping.DefaultRefreshSize); err != nil {
				return err
			}
			if err := provider.SendReturnLabelMails(cmd.Context(), col); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "return label mail sent for %s\n", args[0])
			return nil
		},
	}
}

func readRequests(stdin io.Reader, file string) ([]shipping.ConsignmentRequest, error) {
	var r io.Reader = stdin
	if file != "-" {
		f, err := os.Open(file)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var reqs []shipping.ConsignmentRequest
	if err := json.NewDecoder(r).Decode(&reqs); err != nil {
		return nil, fmt.Errorf("failed to read consignments: %w", err)
	}
	if len(reqs) == 0 {
		return nil, shipping.ErrEmptyCollection
	}
	return reqs, nil
}

func printShipments(w io.Writer, col *shipping.Collection) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tREFERENCE\tBARCODE\tSTATUS\tRECIPIENT")
	for _, cons := range col.Consignments() {
		status := ""
		if cons.Status != 0 {
			status = cons.Status.String()
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s, %s\n",
			cons.APIID, cons.ReferenceID, cons.Barcode, status,
			cons.Recipient.FullStreet(), cons.Recipient.City)
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func joinInts(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ", ")
}
