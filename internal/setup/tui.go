// Package setup provides the interactive configuration wizard.
package setup

import (
	"fmt"
	"net"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"taxfolio/config"
)

var (
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1)
)

// RunTUI launches the terminal configuration wizard and writes the yaml
// config file.
func RunTUI() error {
	listen := config.DefaultListen
	dataDir := config.DefaultDataDir
	fxBaseURL := ""
	token := ""
	confirm := false

	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("TAXFOLIO CONFIG WIZARD"))

	fmt.Println(stepStyle.Render("STEP 1: SERVER"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Listen Address").
				Description("host:port the HTTP server binds to").
				Value(&listen).
				Validate(func(s string) error {
					_, _, err := net.SplitHostPort(s)
					return err
				}),
			huh.NewInput().
				Title("Data Directory").
				Description("Where ledger WAL segments are stored").
				Value(&dataDir).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("data directory cannot be empty")
					}
					return nil
				}),
		),
	).Run()
	if err != nil {
		return err
	}

	fmt.Println(stepStyle.Render("STEP 2: INTEGRATIONS"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("FX Provider Base URL").
				Description("Leave empty for the default (frankfurter.dev)").
				Value(&fxBaseURL),
			huh.NewInput().
				Title("Access Token").
				Description("Required as ?token= on every request; empty disables").
				Value(&token).
				EchoMode(huh.EchoModePassword),
		),
	).Run()
	if err != nil {
		return err
	}

	summary := fmt.Sprintf("Listen: %s\nData dir: %s\nFX url: %s\nToken set: %v\n",
		listen, dataDir, orDefault(fxBaseURL), token != "")
	fmt.Println(lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(summary))

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save Configuration?").
				Affirmative("Yes, save").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}
	if !confirm {
		return fmt.Errorf("setup cancelled by user")
	}

	cfg := config.Config{
		Listen:    listen,
		DataDir:   dataDir,
		FXBaseURL: fxBaseURL,
		Token:     token,
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to generate yaml: %w", err)
	}

	filename := "config.gen.yaml"
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(
		fmt.Sprintf("\n✓ Configuration saved to %s\nRun: taxfolio --config %s", filename, filename)))
	return nil
}

func orDefault(s string) string {
	if s == "" {
		return "(default)"
	}
	return s
}
