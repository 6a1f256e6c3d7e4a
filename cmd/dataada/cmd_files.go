package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dataada/go-sdk/pkg/backend"
	"github.com/dataada/go-sdk/pkg/client"
	"github.com/dataada/go-sdk/pkg/core"
)

var (
	userEmail string
	userName  string

	projectName        string
	projectDescription string
)

// uploadCmd uploads files to the local backend
var uploadCmd = &cobra.Command{
	Use:   "upload [files...]",
	Short: "Upload data files",
	Long: `Uploads up to 5 .csv, .xlsx or .xls files of at most 10MB each and
prints one result per file.

Example:
  dataada upload --email ada@example.com scores.csv`,
	Args: cobra.MinimumNArgs(1),
	RunE: runUpload,
}

// projectsCmd manages projects
var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List and create projects",
}

var projectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your projects",
	Args:  cobra.NoArgs,
	RunE:  runProjectsList,
}

var projectsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a project",
	Args:  cobra.NoArgs,
	RunE:  runProjectsCreate,
}

func init() {
	for _, cmd := range []*cobra.Command{uploadCmd, projectsCmd} {
		cmd.PersistentFlags().StringVar(&userEmail, "email", "", "Sign in to the local backend with this email")
		cmd.PersistentFlags().StringVar(&userName, "name", "", "Display name used when the user is created")
	}

	projectsCreateCmd.Flags().StringVar(&projectName, "project", "", "Project name (required)")
	projectsCreateCmd.Flags().StringVar(&projectDescription, "description", "", "Project description")
	_ = projectsCreateCmd.MarkFlagRequired("project")

	projectsCmd.AddCommand(projectsListCmd)
	projectsCmd.AddCommand(projectsCreateCmd)
}

// signedInClient opens the backend, signs in when --email is set and returns
// a client using both.
func signedInClient(cmd *cobra.Command) (*client.Client, *backend.SQLite, error) {
	db, err := openBackend()
	if err != nil {
		return nil, nil, err
	}

	if userEmail != "" {
		if _, err := db.SignIn(cmd.Context(), userEmail, userName); err != nil {
			db.Close()
			return nil, nil, err
		}
	}

	c, err := newClient(db)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return c, db, nil
}

func runUpload(cmd *cobra.Command, args []string) error {
	c, db, err := signedInClient(cmd)
	if err != nil {
		return err
	}
	defer db.Close()
	defer c.Close()

	inputs := make([]client.FileInput, 0, len(args))
	for _, path := range args {
		input, f, err := client.OpenFile(path)
		if err != nil {
			return err
		}
		defer f.Close()
		inputs = append(inputs, input)
	}

	results, err := c.UploadFiles(cmd.Context(), inputs)
	if err != nil {
		if errors.Is(err, core.ErrNotAuthenticated) {
			return fmt.Errorf("%w: pass --email to sign in", err)
		}
		return err
	}

	failed := printUploadResults(cmd.OutOrStdout(), results)
	if failed > 0 {
		return fmt.Errorf("%d of %d uploads failed", failed, len(results))
	}
	return nil
}

func printUploadResults(out io.Writer, results []client.UploadResult) int {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FILE\tID\tERROR")
	failed := 0
	for _, r := range results {
		if !r.OK() {
			failed++
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", r.Name, r.FileID, r.Error)
	}
	w.Flush()
	return failed
}

func runProjectsList(cmd *cobra.Command, args []string) error {
	c, db, err := signedInClient(cmd)
	if err != nil {
		return err
	}
	defer db.Close()
	defer c.Close()

	resp := c.ListProjects(cmd.Context())
	if !resp.Success {
		return resp.Error
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tUPDATED")
	for _, p := range resp.Data {
		fmt.Fprintf(w, "%s\t%s\t%s\n", p.ID, p.Name, p.UpdatedAt)
	}
	return w.Flush()
}

func runProjectsCreate(cmd *cobra.Command, args []string) error {
	c, db, err := signedInClient(cmd)
	if err != nil {
		return err
	}
	defer db.Close()
	defer c.Close()

	userID := cfg.Chat.UserID
	if session, err := db.GetSession(cmd.Context()); err == nil && session != nil {
		userID = session.UserID
	}

	resp := c.CreateProject(cmd.Context(), core.CreateProjectRequest{
		Name:        projectName,
		Description: projectDescription,
		UserID:      userID,
	})
	if !resp.Success {
		return resp.Error
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created project %s (%s)\n", resp.Data.ID, resp.Data.Name)
	return nil
}
