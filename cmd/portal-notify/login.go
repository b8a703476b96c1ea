package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/nhle/portal-notify/internal/model"
	"github.com/nhle/portal-notify/internal/source"
)

var (
	skipVerify bool

	loginCmd = &cobra.Command{
		Use:   "login",
		Short: "Store the portal account and bearer token",
		RunE:  runLogin,
	}

	logoutCmd = &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored bearer token",
		RunE:  runLogout,
	}
)

func init() {
	loginCmd.Flags().BoolVar(&skipVerify, "skip-verify", false, "save without checking the token against the portal")
}

func validateRequired(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func runLogin(cmd *cobra.Command, _ []string) error {
	e, err := loadEnv(true)
	if err != nil {
		return err
	}
	defer e.Close()

	userID := e.cfg.Session.UserID
	role := e.cfg.Session.Role
	var token string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("User ID").
				Description("Your portal account id").
				Value(&userID).
				Validate(validateRequired("User ID")),
			huh.NewSelect[model.Role]().
				Title("Role").
				Options(
					huh.NewOption("Candidate", model.RoleCandidate),
					huh.NewOption("Recruiter", model.RoleRecruiter),
					huh.NewOption("Admin", model.RoleAdmin),
				).
				Value(&role),
			huh.NewInput().
				Title("Access Token").
				Description("Bearer token from the portal").
				EchoMode(huh.EchoModePassword).
				Value(&token).
				Validate(validateRequired("Token")),
		),
	)
	if err := form.RunWithContext(cmd.Context()); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return nil
		}
		return fmt.Errorf("reading credentials: %w", err)
	}

	e.cfg.Session.UserID = strings.TrimSpace(userID)
	e.cfg.Session.Role = role
	token = strings.TrimSpace(token)

	if !skipVerify {
		sess := e.cfg.NewSession(token)
		if _, err := e.remote(sess).FetchConnections(cmd.Context(), 1); err != nil {
			if source.IsAuthError(err) {
				return errors.New("the portal rejected this token")
			}
			return fmt.Errorf("verifying token: %w", err)
		}
	}

	if err := e.creds.SetToken(e.cfg.Session.Profile, token); err != nil {
		return err
	}
	if err := model.SaveConfig(configPath, e.cfg); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s).\n", e.cfg.Session.UserID, role)
	return nil
}

func runLogout(cmd *cobra.Command, _ []string) error {
	e, err := loadEnv(false)
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.creds.DeleteToken(e.cfg.Session.Profile); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
	return nil
}
