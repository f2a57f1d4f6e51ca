package main

import (
	"fmt"
	"io"

	"github.com/jwebster45206/case-engine/pkg/cases"
	"github.com/jwebster45206/case-engine/pkg/conditions"
	"github.com/spf13/cobra"
)

var describeCmd = &cobra.Command{
	Use:   "describe <case-id>",
	Short: "Show a case's suspects, files and what unlocks each accusation",
	Args:  cobra.ExactArgs(1),
	RunE:  runDescribe,
}

func runDescribe(cmd *cobra.Command, args []string) error {
	lib, err := loadLibrary(cmd)
	if err != nil {
		return fmt.Errorf("load content: %w", err)
	}
	c, err := lib.Case(args[0])
	if err != nil {
		return err
	}
	names := map[string]string{}
	if scene, err := lib.SceneForCase(c.ID); err == nil {
		names = scene.CharacterNames()
	}
	describeCase(cmd.OutOrStdout(), c, names)
	return nil
}

func describeCase(out io.Writer, c *cases.Config, names map[string]string) {
	name := func(id string) string {
		if n := names[id]; n != "" {
			return fmt.Sprintf("%s (%s)", n, id)
		}
		return id
	}

	title := c.Title
	if title == "" {
		title = c.ID
	}
	fmt.Fprintf(out, "Case:     %s\n", title)
	if c.Culprit != "" {
		fmt.Fprintf(out, "Culprit:  %s\n", name(c.Culprit))
	}

	fmt.Fprintf(out, "Suspects:\n")
	for _, id := range c.Suspects {
		fmt.Fprintf(out, "  %s\n", name(id))
	}

	if len(c.Files) > 0 {
		fmt.Fprintf(out, "Files:\n")
		for _, f := range c.Files {
			opens := "always open"
			if f.ActiveWhen != nil {
				opens = "opens with " + conditions.Describe(*f.ActiveWhen)
			}
			fmt.Fprintf(out, "  %s: %s, culprit %s, %s\n", f.ID, f.Title, name(f.Culprit), opens)
		}
	}

	fmt.Fprintf(out, "Crimes:\n")
	for _, cr := range c.Crimes {
		fmt.Fprintf(out, "  %s: %s against %s, needs %s\n", cr.ID, cr.Label, name(cr.SuspectID), conditions.Describe(cr.UnlockWhen))
	}

	if len(c.FailStates) > 0 {
		fmt.Fprintf(out, "Fail states:\n")
		for _, fs := range c.FailStates {
			fmt.Fprintf(out, "  %s: when %s\n", fs.ID, conditions.Describe(fs.When))
		}
	}
}
