package main

import (
	"fmt"

	"github.com/jwebster45206/case-engine/internal/content"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check every case, scene, dialogue and story for broken references",
	Args:  cobra.NoArgs,
	RunE:  runValidate,
}

func runValidate(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	lib, err := loadLibrary(cmd)
	if err != nil {
		return fmt.Errorf("load content: %w", err)
	}
	fmt.Fprintf(out, "Validating %d cases and %d scenes...\n", len(lib.CaseIDs()), len(lib.SceneIDs()))

	v := content.NewValidator(lib)
	if err := v.Validate(); err != nil {
		return err
	}
	fmt.Fprintln(out, "Content is valid!")
	return nil
}
