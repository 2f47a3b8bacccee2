package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/kit8-platform/kit8/internal/auth"
	"github.com/kit8-platform/kit8/internal/client"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// =============================================================================
// SESSION
// =============================================================================

func (a *app) loginCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session token",
		Long:  `Log in with email and password. When --password is omitted the password is read from the first line of stdin.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				return fmt.Errorf("--email is required")
			}
			if password == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && err != io.EOF {
					return fmt.Errorf("could not read password: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}

			if _, err := a.client.Login(cmd.Context(), client.Credentials{Email: email, Password: password}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", email)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client.Logout(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func (a *app) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the account of the stored session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			claims, err := a.client.CurrentUser()
			switch {
			case errors.Is(err, client.ErrNotLoggedIn):
				fmt.Fprintln(out, "Not logged in")
				return nil
			case errors.Is(err, auth.ErrNotJWT):
				fmt.Fprintln(out, "Logged in (opaque session token)")
				return nil
			case err != nil:
				return err
			}

			fmt.Fprintf(out, "%s <%s>\n", claims.Name, claims.Email)
			if claims.ExpiresAt != nil {
				state := "expires"
				if claims.Expired(time.Now()) {
					state = "expired"
				}
				fmt.Fprintf(out, "session %s %s\n", state, claims.ExpiresAt.Time.Format("2006-01-02 15:04:05 MST"))
			}
			return nil
		},
	}
}

// =============================================================================
// OVERVIEW
// =============================================================================

func (a *app) healthCmd() *cobra.Command {
	return a.simpleCmd("health", "Check that the platform API is up", (*client.Client).GetPlatformStatus)
}

type dashboardOutput struct {
	CRM       client.Payload    `json:"crm"`
	Deals     client.Payload    `json:"deals"`
	Inventory client.Payload    `json:"inventory"`
	Orders    client.Payload    `json:"orders"`
	Cashier   client.Payload    `json:"cashier"`
	Errors    map[string]string `json:"errors,omitempty"`
}

func (a *app) dashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show the statistics of every module",
		Long:  `Load the statistics of every module. Sections that fail are reported under "errors" and the rest is still shown.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stats := a.client.LoadDashboardStats(cmd.Context(), a.cfg.CacheTTL)

			out := dashboardOutput{
				CRM:       nullIfEmpty(stats.CRM),
				Deals:     nullIfEmpty(stats.Deals),
				Inventory: nullIfEmpty(stats.Inventory),
				Orders:    nullIfEmpty(stats.Orders),
				Cashier:   nullIfEmpty(stats.Cashier),
			}
			if len(stats.Errors) > 0 {
				out.Errors = make(map[string]string, len(stats.Errors))
				for section, err := range stats.Errors {
					out.Errors[section] = userMessage(err)
				}
			}

			data, err := json.Marshal(out)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), data)
		},
	}
}

func (a *app) statsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Module statistics",
	}

	cmd.AddCommand(
		a.simpleCmd("crm", "Contact and deal totals", (*client.Client).GetCRMStats),
		a.simpleCmd("inventory", "Stock totals", (*client.Client).GetInventoryStats),
		a.simpleCmd("orders", "Order totals", (*client.Client).GetOrderStats),
		a.simpleCmd("cashier", "Revenue and refund totals", (*client.Client).GetCashierStats),
	)
	return cmd
}

// =============================================================================
// CRM
// =============================================================================

var contactFields = map[string]string{
	"first-name": "first_name",
	"last-name":  "last_name",
	"email":      "email",
	"phone":      "phone",
	"company":    "company",
	"position":   "position",
}

func addContactFlags(flags *pflag.FlagSet) {
	flags.String("first-name", "", "first name")
	flags.String("last-name", "", "last name")
	flags.String("email", "", "email address")
	flags.String("phone", "", "phone number")
	flags.String("company", "", "company name")
	flags.String("position", "", "job title")
}

func (a *app) contactsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contacts",
		Short: "Manage CRM contacts",
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Create a contact",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := changedFields(cmd.Flags(), contactFields)
			if err != nil {
				return err
			}
			if err := requireFields(fields, "first_name", "email"); err != nil {
				return err
			}
			return printPayload(cmd, func() (client.Payload, error) { return a.client.CreateContact(cmd.Context(), fields) })
		},
	}
	addContactFlags(create.Flags())

	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Change the given fields of a contact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			fields, err := changedFields(cmd.Flags(), contactFields)
			if err != nil {
				return err
			}
			if len(fields) == 0 {
				return fmt.Errorf("nothing to update")
			}
			return printPayload(cmd, func() (client.Payload, error) { return a.client.UpdateContact(cmd.Context(), id, fields) })
		},
	}
	addContactFlags(update.Flags())

	cmd.AddCommand(
		a.simpleCmd("list", "List contacts", (*client.Client).GetContacts),
		create,
		update,
		a.byIDCmd("delete <id>", "Delete a contact", (*client.Client).DeleteContact),
		a.byIDCmd("deals <id>", "List the deals of a contact", (*client.Client).GetContactDeals),
	)
	return cmd
}

var dealFields = map[string]string{
	"title":               "title",
	"contact-id":          "contact_id",
	"amount":              "amount",
	"stage":               "stage",
	"probability":         "probability",
	"expected-close-date": "expected_close_date",
}

func addDealFlags(flags *pflag.FlagSet) {
	flags.String("title", "", "deal title")
	flags.Int64("contact-id", 0, "id of the linked contact")
	flags.Float64("amount", 0, "deal amount")
	flags.String("stage", "", "new, in-progress, won or lost")
	flags.Int("probability", 0, "chance of closing, 0-100")
	flags.String("expected-close-date", "", "expected close date (YYYY-MM-DD)")
}

func (a *app) dealsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deals",
		Short: "Manage CRM deals",
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Create a deal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := changedFields(cmd.Flags(), dealFields)
			if err != nil {
				return err
			}
			if err := requireFields(fields, "title"); err != nil {
				return err
			}
			return printPayload(cmd, func() (client.Payload, error) { return a.client.CreateDeal(cmd.Context(), fields) })
		},
	}
	addDealFlags(create.Flags())

	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Change the given fields of a deal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			fields, err := changedFields(cmd.Flags(), dealFields)
			if err != nil {
				return err
			}
			if len(fields) == 0 {
				return fmt.Errorf("nothing to update")
			}
			return printPayload(cmd, func() (client.Payload, error) { return a.client.UpdateDeal(cmd.Context(), id, fields) })
		},
	}
	addDealFlags(update.Flags())

	cmd.AddCommand(
		a.simpleCmd("list", "List deals", (*client.Client).GetDeals),
		create,
		update,
		a.byIDCmd("delete <id>", "Delete a deal", (*client.Client).DeleteDeal),
		a.simpleCmd("stats", "Deal totals", (*client.Client).GetDealStats),
	)
	return cmd
}

// =============================================================================
// INVENTORY, ORDERS, CASHIER
// =============================================================================

func (a *app) productsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "products",
		Short: "Browse the product catalogue",
	}
	cmd.AddCommand(
		a.listCmd("List products", (*client.Client).GetProducts),
		a.byIDCmd("get <id>", "Show one product", (*client.Client).GetProduct),
	)
	return cmd
}

func (a *app) ordersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Browse orders",
	}
	cmd.AddCommand(
		a.listCmd("List orders", (*client.Client).GetOrders),
		a.byIDCmd("get <id>", "Show one order", (*client.Client).GetOrder),
	)
	return cmd
}

func (a *app) paymentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payments",
		Short: "Browse and refund payments",
	}
	cmd.AddCommand(
		a.listCmd("List payments", (*client.Client).GetPayments),
		a.byIDCmd("refund <id>", "Refund a completed payment", (*client.Client).RefundPayment),
	)
	return cmd
}

// =============================================================================
// HELPERS
// =============================================================================

type (
	simpleCall func(*client.Client, context.Context) (client.Payload, error)
	idCall     func(*client.Client, context.Context, int64) (client.Payload, error)
	listCall   func(*client.Client, context.Context, client.Params) (client.Payload, error)
)

func (a *app) simpleCmd(use, short string, call simpleCall) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printPayload(cmd, func() (client.Payload, error) { return call(a.client, cmd.Context()) })
		},
	}
}

func (a *app) byIDCmd(use, short string, call idCall) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return printPayload(cmd, func() (client.Payload, error) { return call(a.client, cmd.Context(), id) })
		},
	}
}

func (a *app) listCmd(short string, call listCall) *cobra.Command {
	var raw []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := parseParams(raw)
			if err != nil {
				return err
			}
			return printPayload(cmd, func() (client.Payload, error) { return call(a.client, cmd.Context(), params) })
		},
	}
	cmd.Flags().StringArrayVar(&raw, "param", nil, "query parameter as key=value (repeatable, order is kept)")
	return cmd
}

func printPayload(cmd *cobra.Command, call func() (client.Payload, error)) error {
	payload, err := call()
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), payload)
}

func writeJSON(w io.Writer, data []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return fmt.Errorf("could not format response: %w", err)
	}
	buf.WriteByte('\n')
	_, err := w.Write(buf.Bytes())
	return err
}

func nullIfEmpty(p client.Payload) client.Payload {
	if len(p) == 0 {
		return client.Payload("null")
	}
	return p
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid id %q: must be a positive integer", s)
	}
	return id, nil
}

func parseParams(raw []string) (client.Params, error) {
	params := make(client.Params, 0, len(raw))
	for _, kv := range raw {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --param %q: expected key=value", kv)
		}
		params = append(params, client.Param{Key: key, Value: value})
	}
	return params, nil
}

// changedFields returns the JSON fields for the flags set on the command line, typed by flag kind.
func changedFields(flags *pflag.FlagSet, keys map[string]string) (map[string]any, error) {
	fields := make(map[string]any)
	var err error

	flags.Visit(func(f *pflag.Flag) {
		key, ok := keys[f.Name]
		if !ok || err != nil {
			return
		}
		switch f.Value.Type() {
		case "int", "int64":
			var n int64
			n, err = strconv.ParseInt(f.Value.String(), 10, 64)
			fields[key] = n
		case "float64":
			var n float64
			n, err = strconv.ParseFloat(f.Value.String(), 64)
			fields[key] = n
		default:
			fields[key] = f.Value.String()
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid flag value: %w", err)
	}
	return fields, nil
}

func requireFields(fields map[string]any, keys ...string) error {
	var missing []string
	for _, k := range keys {
		if v, ok := fields[k]; !ok || v == "" {
			missing = append(missing, "--"+strings.ReplaceAll(k, "_", "-"))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required flags: %s", strings.Join(missing, ", "))
	}
	return nil
}
