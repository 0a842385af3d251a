// cmd/onboarding-cli/profile.go
package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"workshop-onboarding/internal/models"
)

var profileChanges models.UpdateWorkshopRequest

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show or edit the workshop profile",
	Long: `Show the workshop profile. Any of --name, --address or --phone updates that
field; the others keep their current value.`,
	RunE: runProfile,
}

func init() {
	profileCmd.Flags().StringVar(&profileChanges.Name, "name", "", "new workshop name")
	profileCmd.Flags().StringVar(&profileChanges.Address, "address", "", "new address")
	profileCmd.Flags().StringVar(&profileChanges.PhoneNumber, "phone", "", "new phone number")
}

type profileAPI interface {
	GetWorkshop(ctx context.Context) (*models.Workshop, error)
	UpdateWorkshop(ctx context.Context, id int64, req models.UpdateWorkshopRequest) (*models.Workshop, error)
}

func runProfile(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	session, err := a.session()
	if err != nil {
		return err
	}
	return editProfile(cmd.Context(), cmd.OutOrStdout(), a.backend(session), profileChanges)
}

func editProfile(ctx context.Context, out io.Writer, api profileAPI, changes models.UpdateWorkshopRequest) error {
	ws, err := api.GetWorkshop(ctx)
	if err != nil {
		return err
	}

	req := ws.EditRequest()
	changed := false
	if changes.Name != "" {
		req.Name, changed = changes.Name, true
	}
	if changes.Address != "" {
		req.Address, changed = changes.Address, true
	}
	if changes.PhoneNumber != "" {
		req.PhoneNumber, changed = changes.PhoneNumber, true
	}
	if changed {
		if ws, err = api.UpdateWorkshop(ctx, ws.ID, req); err != nil {
			return err
		}
		fmt.Fprintln(out, "Profile updated")
	}

	fmt.Fprintf(out, "Tenant:   %s\n", ws.TenantID)
	fmt.Fprintf(out, "Name:     %s\n", ws.Name)
	fmt.Fprintf(out, "Address:  %s\n", ws.Address)
	fmt.Fprintf(out, "Phone:    %s\n", ws.PhoneNumber)
	return nil
}
