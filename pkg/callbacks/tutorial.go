package callbacks

// TutorialPrefix namespaces the tutorial gameplay scripts, e.g. "tutorial/skip_tutorial".
const TutorialPrefix = "tutorial"

// TutorialSkipScene is where skipping the tutorial sends the player.
const TutorialSkipScene = "introduction_city"

// TutorialScripts are the tutorial scene's named gameplay scripts.
func TutorialScripts() map[string]Func {
	return map[string]Func{
		"read_phone_text":     MarkFlag("phoneTextRead", "📱 Phone log noted (Butter text)."),
		"mark_cheese_illegal": MarkFlag("cheeseMarkedIllegal", "🧀 Cheese marked as illegal contraband."),
		"skip_tutorial": Script(
			MarkFlag("tutorialSkipped", "Tutorial skipped."),
			MarkEvent("cop2_tutorial_briefing"),
			ChangeScene(TutorialSkipScene),
		),
	}
}
