package labels

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/tphakala/image-analyzer/internal/conf"
	"github.com/tphakala/image-analyzer/internal/datastore"
	"github.com/tphakala/image-analyzer/internal/datastore/entities"
	"github.com/tphakala/image-analyzer/internal/logger"
)

// Command creates the command that lists registered object labels.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "labels",
		Short: "List registered object labels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			central, err := logger.NewCentralLogger(&settings.Logging)
			if err != nil {
				return err
			}
			defer func() { _ = central.Close() }()

			store, err := datastore.Open(cmd.Context(), &settings.Datastore, central.Module("datastore"))
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			list, err := store.Labels.List(cmd.Context())
			if err != nil {
				return err
			}
			return printLabels(cmd.OutOrStdout(), list)
		},
	}
	return cmd
}

func printLabels(w io.Writer, list []*entities.Label) error {
	rows := make([][]string, 0, len(list))
	for _, l := range list {
		rows = append(rows, []string{
			strconv.FormatUint(uint64(l.ID), 10),
			l.Name,
			l.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "NAME", "CREATED"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(rows)
	table.Render()

	_, err := fmt.Fprintf(w, "%d labels\n", len(list))
	return err
}
