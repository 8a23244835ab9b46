package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/toyota-maintenance-collector/internal/catalog"
)

func newModelsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "Lists catalog models, their categories and years",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cat := catalog.Default()
			rows := make([][]string, 0, len(cat.Models()))
			for _, m := range cat.Models() {
				category := string(m.Category)
				if m.Hybrid {
					category += " (hybrid)"
				}
				rows = append(rows, []string{m.Name, m.Display, category, yearSpan(m.Years)})
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Model", "Display", "Category", "Years"},
				rows,
				nil,
			))
			c.log().Debug("listed catalog models")
			return err
		},
	}
}

// yearSpan compacts sorted years into ranges, e.g. "2018-2021, 2024".
func yearSpan(years []int) string {
	var parts []string
	for i := 0; i < len(years); {
		j := i
		for j+1 < len(years) && years[j+1] == years[j]+1 {
			j++
		}
		if j == i {
			parts = append(parts, strconv.Itoa(years[i]))
		} else {
			parts = append(parts, strconv.Itoa(years[i])+"-"+strconv.Itoa(years[j]))
		}
		i = j + 1
	}
	return strings.Join(parts, ", ")
}
