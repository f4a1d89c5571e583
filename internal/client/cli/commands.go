package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Login exchanges an email for an access token.
func (a *App) Login(ctx context.Context) error {
	email, err := GetSimpleText(a.reader, "Email", os.Stdout)
	if err != nil {
		return err
	}

	userID, hasMasterKey, err := a.client.Login(ctx, email)
	if err != nil {
		fmt.Println("Login failed:", err)
		return err
	}

	a.userID = userID
	if !hasMasterKey {
		fmt.Println("Logged in. No master key registered yet; it will be set with your first project.")
	} else {
		fmt.Println("Logged in.")
	}
	return nil
}

// CreateProject provisions a new project; the master key is registered on the
// very first project and verified afterwards.
func (a *App) CreateProject(ctx context.Context) error {
	name, err := GetSimpleText(a.reader, "Project name", os.Stdout)
	if err != nil {
		return err
	}

	passcode, err := GetSecret("Project passcode", os.Stdout)
	if err != nil {
		return err
	}
	masterKey, err := GetSecret("Master key", os.Stdout)
	if err != nil {
		return err
	}

	project, err := a.client.CreateProject(ctx, name, string(passcode), string(masterKey))
	wipe(passcode)
	wipe(masterKey)
	if err != nil {
		fmt.Println("Create failed:", err)
		return err
	}

	a.projectID = project.ID
	if err := a.selectDefaultEnvironment(ctx); err != nil {
		return err
	}

	fmt.Println("Created and unlocked project", project.ID)
	return nil
}

// Use selects an existing project and unlocks it with its passcode.
func (a *App) Use(ctx context.Context) error {
	projectID, err := GetSimpleText(a.reader, "Project ID", os.Stdout)
	if err != nil {
		return err
	}

	passcode, err := GetSecret("Project passcode", os.Stdout)
	if err != nil {
		return err
	}

	err = a.client.Unlock(ctx, projectID, string(passcode))
	wipe(passcode)
	if err != nil {
		fmt.Println("Unlock failed:", err)
		return err
	}

	a.projectID = projectID
	if err := a.selectDefaultEnvironment(ctx); err != nil {
		return err
	}

	fmt.Println("Project unlocked.")
	return nil
}

// Lock discards the server-side session key for the current project.
func (a *App) Lock(ctx context.Context) error {
	if a.projectID == "" {
		fmt.Println("No project selected.")
		return nil
	}
	if err := a.client.Lock(ctx, a.projectID); err != nil {
		fmt.Println("Lock failed:", err)
		return err
	}
	a.projectID = ""
	a.environmentID = ""
	fmt.Println("Project locked.")
	return nil
}

// Recover decrypts a forgotten project passcode with the master key.
func (a *App) Recover(ctx context.Context) error {
	projectID, err := GetSimpleText(a.reader, "Project ID", os.Stdout)
	if err != nil {
		return err
	}

	masterKey, err := GetSecret("Master key", os.Stdout)
	if err != nil {
		return err
	}

	passcode, err := a.client.RecoverPasscode(ctx, projectID, string(masterKey))
	wipe(masterKey)
	if err != nil {
		fmt.Println("Recovery failed:", err)
		return err
	}

	fmt.Println("Passcode:", passcode)
	return nil
}

// Rotate replaces the master key, re-wrapping every owned project's passcode.
func (a *App) Rotate(ctx context.Context) error {
	oldKey, err := GetSecret("Current master key", os.Stdout)
	if err != nil {
		return err
	}
	newKey, err := GetSecret("New master key", os.Stdout)
	if err != nil {
		return err
	}

	count, err := a.client.RotateMasterKey(ctx, string(oldKey), string(newKey))
	wipe(oldKey)
	wipe(newKey)
	if err != nil {
		fmt.Println("Rotation failed:", err)
		return err
	}

	fmt.Printf("Master key rotated, %d project(s) re-encrypted.\n", count)
	return nil
}

// Set writes a variable into the current environment.
func (a *App) Set(ctx context.Context) error {
	if a.environmentID == "" {
		fmt.Println("No project selected.")
		return nil
	}

	name, err := GetSimpleText(a.reader, "Variable name", os.Stdout)
	if err != nil {
		return err
	}
	value, err := GetSecret("Value", os.Stdout)
	if err != nil {
		return err
	}

	err = a.client.SetVariable(ctx, a.projectID, a.environmentID, name, string(value))
	wipe(value)
	if err != nil {
		fmt.Println("Set failed:", err)
		return err
	}

	fmt.Println("OK")
	return nil
}

// Get prints one decrypted variable.
func (a *App) Get(ctx context.Context) error {
	if a.environmentID == "" {
		fmt.Println("No project selected.")
		return nil
	}

	name, err := GetSimpleText(a.reader, "Variable name", os.Stdout)
	if err != nil {
		return err
	}

	value, err := a.client.GetVariable(ctx, a.projectID, a.environmentID, name)
	if err != nil {
		fmt.Println("Get failed:", err)
		return err
	}

	fmt.Printf("%s=%s\n", name, value)
	return nil
}

// List prints every variable of the current environment in dotenv form.
func (a *App) List(ctx context.Context) error {
	if a.environmentID == "" {
		fmt.Println("No project selected.")
		return nil
	}

	values, err := a.client.ListVariables(ctx, a.projectID, a.environmentID)
	if err != nil {
		fmt.Println("List failed:", err)
		return err
	}

	for name, value := range values {
		fmt.Printf("%s=%s\n", name, value)
	}
	return nil
}

// Share mints a public share of selected variables and prints the link data.
func (a *App) Share(ctx context.Context) error {
	if a.environmentID == "" {
		fmt.Println("No project selected.")
		return nil
	}

	namesLine, err := GetSimpleText(a.reader, "Variable names (space separated)", os.Stdout)
	if err != nil {
		return err
	}
	names := strings.Fields(namesLine)

	maxViewsLine, err := GetSimpleText(a.reader, "Max views (empty for unlimited)", os.Stdout)
	if err != nil {
		return err
	}
	var maxViews *int
	if maxViewsLine != "" {
		n, err := strconv.Atoi(maxViewsLine)
		if err != nil {
			fmt.Println("Invalid number:", maxViewsLine)
			return err
		}
		maxViews = &n
	}

	shareID, passcode, err := a.client.CreateShare(ctx, a.projectID, a.environmentID, names, maxViews)
	if err != nil {
		fmt.Println("Share failed:", err)
		return err
	}

	fmt.Println("Share ID:  ", shareID)
	fmt.Println("Passcode:  ", passcode)
	return nil
}

// Reveal opens a public share with its passcode. Works without login.
func (a *App) Reveal(ctx context.Context) error {
	shareID, err := GetSimpleText(a.reader, "Share ID", os.Stdout)
	if err != nil {
		return err
	}
	passcode, err := GetSecret("Share passcode", os.Stdout)
	if err != nil {
		return err
	}

	values, err := a.client.RevealShare(ctx, shareID, string(passcode))
	wipe(passcode)
	if err != nil {
		fmt.Println("Reveal failed:", err)
		return err
	}

	for name, value := range values {
		fmt.Printf("%s=%s\n", name, value)
	}
	return nil
}

// selectDefaultEnvironment points the session at the project's first
// environment so set/get/list work immediately after unlock.
func (a *App) selectDefaultEnvironment(ctx context.Context) error {
	envs, err := a.client.ListEnvironments(ctx, a.projectID)
	if err != nil {
		return err
	}
	if len(envs) > 0 {
		a.environmentID = envs[0].ID
	}
	return nil
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
