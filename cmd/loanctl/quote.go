package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"cashflow-loans/internal/common/money"
	"cashflow-loans/internal/models"
	"cashflow-loans/internal/quote"
	"cashflow-loans/pkg/registry"
)

var quoteLoanType string

var quoteCmd = &cobra.Command{
	Use:   "quote <amount>",
	Short: "Compute the repayment quote for an amount",
	Long: `Compute the flat-rate quote for an amount as of today.

Non-numeric amounts quote as zero, the same way the calculator does.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuote,
}

func init() {
	quoteCmd.Flags().StringVarP(&quoteLoanType, "type", "t", string(models.LoanTypeUnsecured), "Loan type: unsecured or secured")
}

type quoteOutput struct {
	LoanType     models.LoanType  `json:"loanType"`
	Quote        models.LoanQuote `json:"quote"`
	TermsSummary []string         `json:"termsSummary"`
}

func runQuote(cmd *cobra.Command, args []string) error {
	loanType, ok := models.ParseLoanType(quoteLoanType)
	if !ok {
		return fmt.Errorf("unknown loan type %q", quoteLoanType)
	}
	reg, err := registry.Default()
	if err != nil {
		return err
	}
	product, _ := reg.Get(loanType)

	q := quote.NewEngine().QuoteRaw(args[0])
	out := cmd.OutOrStdout()
	if outputFormat == "json" {
		return writeJSON(out, quoteOutput{LoanType: loanType, Quote: q, TermsSummary: product.TermsSummary})
	}

	fmt.Fprintf(out, "%s\n", product.DisplayName)
	fmt.Fprintf(out, "  Loan amount:     %s\n", money.FormatDecimal(currency, q.Principal))
	fmt.Fprintf(out, "  Interest (%s%%): %s\n", q.RateFlatPercent.String(), money.FormatDecimal(currency, q.Interest))
	fmt.Fprintf(out, "  Total repayment: %s\n", money.FormatDecimal(currency, q.Total))
	fmt.Fprintf(out, "  Monthly payment: %s\n", money.FormatDecimal(currency, q.MonthlyPayment))
	fmt.Fprintf(out, "  Term:            %d month\n", q.TermMonths)
	fmt.Fprintf(out, "  Due date:        %s\n", q.DueDate.Format("2006-01-02"))
	if len(product.TermsSummary) > 0 {
		fmt.Fprintf(out, "  Terms:           %s\n", strings.Join(product.TermsSummary, "; "))
	}
	return nil
}
