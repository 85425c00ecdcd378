package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"cashflow-loans/internal/common/config"
	"cashflow-loans/internal/common/crm"
)

var (
	crmEndpoint string
	crmAPIKey   string
	crmTimeout  time.Duration
)

var crmCmd = &cobra.Command{
	Use:   "crm",
	Short: "Look up leads in the CRM",
}

var crmGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Fetch one lead by id",
	Args:  cobra.ExactArgs(1),
	RunE:  runCRMGet,
}

var crmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List leads",
	Args:  cobra.NoArgs,
	RunE:  runCRMList,
}

func init() {
	crmCmd.PersistentFlags().StringVar(&crmEndpoint, "endpoint", config.DefaultCRMEndpoint, "CRM clients endpoint")
	crmCmd.PersistentFlags().StringVar(&crmAPIKey, "api-key", "", "CRM API key")
	crmCmd.PersistentFlags().DurationVar(&crmTimeout, "timeout", 30*time.Second, "Request timeout")
	crmCmd.AddCommand(crmGetCmd, crmListCmd)
}

func runCRMGet(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(contextOf(cmd), crmTimeout)
	defer cancel()

	resp, err := crm.NewClient(crmEndpoint, crmAPIKey, crmTimeout).GetClient(ctx, args[0])
	if err != nil {
		return fmt.Errorf("crm get %s: %w", args[0], err)
	}
	return printCRM(cmd, resp)
}

func runCRMList(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(contextOf(cmd), crmTimeout)
	defer cancel()

	resp, err := crm.NewClient(crmEndpoint, crmAPIKey, crmTimeout).ListClients(ctx)
	if err != nil {
		return fmt.Errorf("crm list: %w", err)
	}
	return printCRM(cmd, resp)
}

// printCRM prints the parsed body as JSON, or the raw body when it was not JSON.
func printCRM(cmd *cobra.Command, resp *crm.Response) error {
	out := cmd.OutOrStdout()
	if resp.Body == nil {
		_, err := fmt.Fprintln(out, string(resp.Raw))
		return err
	}
	return writeJSON(out, resp.Body)
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
