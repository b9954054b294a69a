package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Zhima-Mochi/minishop-checkout/internal/config"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/money"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/memory"
)

type catalogEntry struct {
	ID       string      `json:"id"`
	Title    string      `json:"title"`
	Category string      `json:"category"`
	Price    json.Number `json:"price"`
	Currency string      `json:"currency"`
}

func catalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "Print the trusted price list as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			products, err := memory.NewStorefrontCatalog().List(cmd.Context())
			if err != nil {
				return err
			}
			out := make([]catalogEntry, 0, len(products))
			for _, p := range products {
				out = append(out, catalogEntry{
					ID:       p.ID,
					Title:    p.Title,
					Category: p.Category,
					Price:    json.Number(p.Price.StringFixed(money.Scale)),
					Currency: cfg.StoreCurrency,
				})
			}
			data, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return fmt.Errorf("encode catalog: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}
