package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/jwulff/minutes/internal/api"
	"github.com/jwulff/minutes/internal/roles"
	"github.com/jwulff/minutes/internal/ui"
)

var providers = []string{"gemini", "openai"}

func newAgentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agents",
		Short: "Manage summarization agents (administrators only)",
	}
	cmd.AddCommand(newAgentsListCmd())
	cmd.AddCommand(newAgentsCreateCmd())
	cmd.AddCommand(newAgentsUpdateCmd())
	cmd.AddCommand(newAgentsDeleteCmd())
	return cmd
}

// openAdmin opens the env and checks the signed-in user may manage agents.
func openAdmin(cmd *cobra.Command) (*env, api.User, error) {
	e, err := openEnv(cmd, envOptions{})
	if err != nil {
		return nil, api.User{}, err
	}
	u, err := e.user()
	if err != nil {
		e.Close()
		return nil, api.User{}, err
	}
	if !roles.FromInt(u.Role).CanManageAgents() {
		e.Close()
		return nil, api.User{}, errAccessDenied
	}
	return e, u, nil
}

func newAgentsListCmd() *cobra.Command {
	var active bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List agents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, u, err := openAdmin(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			agents, err := e.client.ListAgents(cmd.Context(), u.ID, active)
			if err != nil {
				return err
			}
			if len(agents) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No agents configured yet.")
				return nil
			}
			writeAgentTable(cmd.OutOrStdout(), agents, termWidth(cmd, 100))
			return nil
		},
	}

	cmd.Flags().BoolVar(&active, "active", false, "only list active agents")
	return cmd
}

// writeAgentTable prints Name, Provider, Model, Status and Description, the
// description taking whatever width is left.
func writeAgentTable(w io.Writer, agents []api.Agent, width int) {
	headers := []string{"ID", "NAME", "PROVIDER", "MODEL", "STATUS", "DESCRIPTION"}
	rows := make([][]string, 0, len(agents))
	for _, a := range agents {
		status := "Inactive"
		if a.IsActive {
			status = "Active"
		}
		rows = append(rows, []string{
			strconv.Itoa(a.ID), a.Name, a.Provider, a.ModelLabel(), status,
			strings.Join(strings.Fields(a.Description), " "),
		})
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, r := range rows {
		for i, c := range r {
			widths[i] = max(widths[i], lipgloss.Width(c))
		}
	}
	used := 0
	for _, n := range widths[:len(widths)-1] {
		used += n + 2
	}
	widths[len(widths)-1] = max(min(widths[len(widths)-1], width-used), 11)

	line := func(cells []string, style lipgloss.Style) string {
		parts := make([]string, len(cells))
		for i, c := range cells {
			parts[i] = style.Render(fit(c, widths[i]))
		}
		return strings.TrimRight(strings.Join(parts, "  "), " ")
	}
	fmt.Fprintln(w, line(headers, ui.LabelStyle.UnsetWidth()))
	for _, r := range rows {
		fmt.Fprintln(w, line(r, lipgloss.NewStyle()))
	}
}

// fit truncates s with an ellipsis or pads it to exactly width cells.
func fit(s string, width int) string {
	if lipgloss.Width(s) > width {
		runes := []rune(s)
		for len(runes) > 0 && lipgloss.Width(string(runes))+1 > width {
			runes = runes[:len(runes)-1]
		}
		s = string(runes) + "…"
	}
	return s + strings.Repeat(" ", max(width-lipgloss.Width(s), 0))
}

type agentFlags struct {
	name        string
	description string
	provider    string
	model       string
	prompt      string
	promptFile  string
}

func (f *agentFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "agent name")
	cmd.Flags().StringVar(&f.description, "description", "", "short description")
	cmd.Flags().StringVar(&f.provider, "provider", "gemini", "LLM provider (gemini, openai)")
	cmd.Flags().StringVar(&f.model, "model", "", "model name (provider default when empty)")
	cmd.Flags().StringVar(&f.prompt, "prompt", "", "prompt template")
	cmd.Flags().StringVar(&f.promptFile, "prompt-file", "", "read the prompt template from a file")
}

// apply copies the flags the user set onto a.
func (f *agentFlags) apply(cmd *cobra.Command, a *api.Agent) error {
	changed := cmd.Flags().Changed
	if changed("name") {
		a.Name = strings.TrimSpace(f.name)
	}
	if changed("description") {
		a.Description = f.description
	}
	if changed("provider") || a.Provider == "" {
		p := strings.ToLower(f.provider)
		if !validProvider(p) {
			return fmt.Errorf("unknown provider %q (want %s)", f.provider, strings.Join(providers, " or "))
		}
		a.Provider = p
	}
	if changed("model") {
		a.ModelName = strings.TrimSpace(f.model)
	}
	if changed("prompt") {
		a.PromptTemplate = f.prompt
	}
	if f.promptFile != "" {
		data, err := os.ReadFile(f.promptFile)
		if err != nil {
			return err
		}
		a.PromptTemplate = string(data)
	}
	if a.Name == "" || strings.TrimSpace(a.PromptTemplate) == "" {
		return errors.New("name and prompt template are required")
	}
	return nil
}

func validProvider(p string) bool {
	for _, v := range providers {
		if v == p {
			return true
		}
	}
	return false
}

func newAgentsCreateCmd() *cobra.Command {
	var flags agentFlags

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an agent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, u, err := openAdmin(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			a := api.Agent{UserID: u.ID, IsActive: true}
			if err := flags.apply(cmd, &a); err != nil {
				return err
			}
			created, err := e.client.CreateAgent(cmd.Context(), a)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created agent %d (%s)\n", created.ID, created.Name)
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

func newAgentsUpdateCmd() *cobra.Command {
	var flags agentFlags

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change an agent's settings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid agent id %q", args[0])
			}
			e, u, err := openAdmin(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			agents, err := e.client.ListAgents(cmd.Context(), u.ID, false)
			if err != nil {
				return err
			}
			var a *api.Agent
			for i := range agents {
				if agents[i].ID == id {
					a = &agents[i]
					break
				}
			}
			if a == nil {
				return errors.New("Agent not found")
			}
			a.UserID = u.ID
			if err := flags.apply(cmd, a); err != nil {
				return err
			}
			updated, err := e.client.UpdateAgent(cmd.Context(), id, *a)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated agent %d (%s)\n", updated.ID, updated.Name)
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

func newAgentsDeleteCmd() *cobra.Command {
	var soft bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid agent id %q", args[0])
			}
			e, u, err := openAdmin(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			if err := e.client.DeleteAgent(cmd.Context(), id, u.ID, !soft); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted agent %d\n", id)
			return nil
		},
	}

	cmd.Flags().BoolVar(&soft, "deactivate", false, "deactivate instead of removing")
	return cmd
}
