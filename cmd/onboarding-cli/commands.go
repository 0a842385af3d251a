// cmd/onboarding-cli/commands.go
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"workshop-onboarding/internal/common/auth"
	"workshop-onboarding/internal/common/config"
	"workshop-onboarding/internal/models"
	draftpersistence "workshop-onboarding/internal/onboarding/draft-persistence"
	onboardinggate "workshop-onboarding/internal/onboarding/onboarding-gate"
	progressestimator "workshop-onboarding/internal/onboarding/progress-estimator"
	stepcontroller "workshop-onboarding/internal/onboarding/step-controller"
)

var (
	loginUsername string
	loginPassword string

	registerForm auth.RegistrationForm

	wizardFile   string
	wizardDryRun bool
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in as a workshop operator",
	Long: `Log in and store the session token for later commands.

The password may also be given through ONBOARDING_PASSWORD.`,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	RunE:  runLogout,
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a workshop account",
	RunE:  runRegister,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether onboarding is required and how far it got",
	RunE:  runStatus,
}

var wizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Run the onboarding wizard from a draft file",
	Long: `Run the onboarding wizard using the answers in a YAML draft file.

The wizard resumes at the first step the backend reports as missing, saves
the draft after each step and completes onboarding after the last one. When
a step fails the progress made so far is kept.`,
	RunE: runWizard,
}

var draftCmd = &cobra.Command{
	Use:   "draft",
	Short: "Show the locally cached draft",
	RunE:  runDraft,
}

var stepsCmd = &cobra.Command{
	Use:   "steps",
	Short: "List the wizard steps",
	RunE:  runSteps,
}

func init() {
	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "workshop username")
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "password")

	registerCmd.Flags().StringVar(&registerForm.Username, "username", "", "workshop username")
	registerCmd.Flags().StringVar(&registerForm.Email, "email", "", "contact email")
	registerCmd.Flags().StringVar(&registerForm.Password, "password", "", "password (at least 8 characters)")
	registerCmd.Flags().StringVar(&registerForm.ConfirmPassword, "confirm-password", "", "repeat the password")

	wizardCmd.Flags().StringVarP(&wizardFile, "file", "f", "", "YAML draft file")
	wizardCmd.Flags().BoolVar(&wizardDryRun, "dry-run", false, "validate the file locally without contacting the backend")
	_ = wizardCmd.MarkFlagRequired("file")
}

func runLogin(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	password := loginPassword
	if password == "" {
		password = os.Getenv("ONBOARDING_PASSWORD")
	}
	session, err := a.auth.Login(cmd.Context(), loginUsername, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", session.Username())
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	session, _ := a.auth.Restore()
	if err := a.auth.Logout(session); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
	return nil
}

func runRegister(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.auth.Register(cmd.Context(), registerForm); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Account created. Log in to start onboarding.")
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	session, err := a.session()
	if err != nil {
		return err
	}
	client := a.backend(session)
	ctx := cmd.Context()

	decision, err := onboardinggate.NewGate(client, config.GetDuration(a.cfg.Backend.Timeout), a.log).Check(ctx)
	if err != nil {
		return err
	}
	badge, err := progressestimator.NewEstimator(client, a.log).Refresh(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "User:        %s\n", session.Username())
	if decision.Permissions != nil {
		fmt.Fprintf(out, "Account:     %s (%s)\n", decision.Permissions.Status, decision.Permissions.Role)
	}
	if !decision.NeedsOnboarding {
		fmt.Fprintln(out, "Onboarding:  completed")
		return nil
	}
	fmt.Fprintf(out, "Onboarding:  required (%s)\n", decision.Reason)
	if badge.Visible {
		fmt.Fprintf(out, "Progress:    %d%%\n", badge.Percentage)
		for _, tag := range badge.Remaining {
			fmt.Fprintf(out, "  missing    %s\n", tag)
		}
	}
	return nil
}

func runWizard(cmd *cobra.Command, args []string) error {
	file, err := loadDraftFile(wizardFile)
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	reg, err := a.registry()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if wizardDryRun {
		return dryRun(out, file)
	}

	session, err := a.session()
	if err != nil {
		return err
	}
	persistCfg := draftpersistence.FromAppConfig(a.cfg)
	adapter := draftpersistence.NewAdapter(a.backend(session), a.draftCache(ctx, persistCfg), session.Username(), persistCfg, a.log)

	wizard := stepcontroller.New(adapter, stepcontroller.FromAppConfig(a.cfg, reg), a.log)
	wizard.OnComplete(func(*models.OnboardingStatus) {
		fmt.Fprintln(out, "Onboarding completed. Welcome aboard!")
	})
	defer wizard.Close(context.Background())

	return driveWizard(ctx, out, wizard, file)
}

// driveWizard drives an already constructed wizard to completion.
func driveWizard(ctx context.Context, out io.Writer, wizard *stepcontroller.Controller, file *draftFile) error {
	if err := wizard.Bootstrap(ctx); err != nil {
		fmt.Fprintln(out, wizard.State().LoadError)
		return err
	}
	if wizard.State().Phase == stepcontroller.PhaseCompleted {
		fmt.Fprintln(out, "Onboarding is already completed.")
		return nil
	}
	fmt.Fprintf(out, "Resuming at step %d of %d\n", wizard.State().CurrentStep, stepcontroller.LastStep)
	if p := wizard.Permissions(); p != nil && !p.IsActive() {
		fmt.Fprintf(out, "Account is %s until onboarding is completed\n", p.Status)
	}

	if err := file.apply(wizard); err != nil {
		printErrors(out, wizard.State())
		printChoices(out, wizard)
		return err
	}

	for wizard.State().Phase == stepcontroller.PhaseReady {
		step := wizard.StepInfo()
		state := wizard.State()
		fmt.Fprintf(out, "[%d/%d] %s (progress %d%%)\n", step.Number, stepcontroller.LastStep, step.Title,
			progressestimator.LocalPercentage(state.Draft, wizard.Services()))
		if err := wizard.Advance(ctx); err != nil {
			printErrors(out, wizard.State())
			printChoices(out, wizard)
			return err
		}
		if status := wizard.LastStatus(); status != nil && wizard.State().Phase == stepcontroller.PhaseReady {
			fmt.Fprintf(out, "  saved, backend reports %d%%\n", progressestimator.Percentage(status))
		}
	}
	return nil
}

// printChoices lists the valid ids for a rejected category or service selection.
func printChoices(out io.Writer, wizard *stepcontroller.Controller) {
	errs := wizard.State().Errors
	if _, ok := errs[stepcontroller.FieldCategoryID]; ok {
		fmt.Fprintln(out, "Available categories:")
		for _, c := range wizard.Categories() {
			fmt.Fprintf(out, "  %s  %s\n", c.ID, c.Name)
		}
	}
	if _, ok := errs[stepcontroller.FieldServiceIDs]; ok {
		fmt.Fprintln(out, "Services in the selected category:")
		for _, svc := range wizard.ServicesForSelectedCategory() {
			fmt.Fprintf(out, "  %s  %s\n", svc.ID, svc.Name)
		}
	}
}

func printErrors(out io.Writer, state stepcontroller.State) {
	if !state.HasErrors() {
		return
	}
	fields := make([]string, 0, len(state.Errors))
	for f := range state.Errors {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		fmt.Fprintf(out, "  %s: %s\n", f, state.Errors[f])
	}
	if state.GlobalError != "" {
		fmt.Fprintln(out, state.GlobalError)
	}
}

// dryRun checks the file against the step rules using only the ids it names.
func dryRun(out io.Writer, file *draftFile) error {
	draft := models.Draft{
		Name:       file.Name,
		Address:    file.Address,
		Latitude:   file.Latitude,
		Longitude:  file.Longitude,
		CategoryID: file.CategoryID,
		ServiceIDs: file.ServiceIDs,
	}
	services := make([]models.Service, 0, len(file.ServiceIDs))
	for _, id := range file.ServiceIDs {
		services = append(services, models.Service{ID: id, CategoryID: file.CategoryID})
	}

	failed := false
	for step := stepcontroller.FirstStep; step <= stepcontroller.LastStep; step++ {
		errs := stepcontroller.ValidateStep(step, draft, services)
		if len(errs) == 0 {
			fmt.Fprintf(out, "step %d: ok\n", step)
			continue
		}
		failed = true
		printErrors(out, stepcontroller.State{Errors: errs})
	}
	fmt.Fprintf(out, "progress: %d%%\n", progressestimator.LocalPercentage(draft, services))
	if failed {
		return fmt.Errorf("draft file %s is incomplete", file.path)
	}
	return nil
}

func runDraft(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	session, err := a.session()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	persistCfg := draftpersistence.FromAppConfig(a.cfg)
	adapter := draftpersistence.NewAdapter(a.backend(session), a.draftCache(ctx, persistCfg), session.Username(), persistCfg, a.log)

	cached, err := adapter.LoadLocal(ctx)
	if err != nil {
		return err
	}
	if cached == nil {
		fmt.Fprintln(cmd.OutOrStdout(), "No cached draft.")
		return nil
	}
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(map[string]interface{}{
		"step":    cached.Step,
		"savedAt": cached.SavedAt,
		"synced":  cached.Synced,
		"draft":   cached.Draft,
	})
}

func runSteps(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	reg, err := a.registry()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, s := range reg.Steps {
		optional := ""
		if s.Optional {
			optional = " (optional)"
		}
		fmt.Fprintf(out, "%d. %s%s\n   %s\n", s.Number, s.Title, optional, s.Description)
	}
	return nil
}
