package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"promptlib/internal/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// list flags
	listSearch string
	listTag    string
	listSort   string

	// save flags
	saveID          int64
	saveTitle       string
	saveContent     string
	saveContentFile string
	saveTags        []string
	saveFavorite    bool
	saveNote        string

	// log flags
	logOutput string
	logVars   string
	logRating int64
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List prompts with optional search, tag filter, and sort order",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		prompts, err := s.ListPrompts(store.ListOptions{
			Search: listSearch,
			Tag:    listTag,
			SortBy: listSort,
		})
		if err != nil {
			return err
		}

		if len(prompts) == 0 {
			fmt.Println("No prompts found.")
			return nil
		}

		fmt.Println(headerStyle.Render(fmt.Sprintf("%d prompt(s)", len(prompts))))
		for _, p := range prompts {
			fav := " "
			if p.IsFavorite {
				fav = "*"
			}
			line := fmt.Sprintf("%s %s %s", idStyle.Render(fmt.Sprintf("#%d", p.ID)), fav, p.Title)
			if p.ScoreCount > 0 {
				line += "  " + scoreStyle.Render(fmt.Sprintf("%.2f (%d)", p.ScoreAvg, p.ScoreCount))
			}
			if len(p.Tags) > 0 {
				line += "  " + tagStyle.Render(strings.Join(p.Tags, ", "))
			}
			fmt.Println(line)
		}
		return nil
	},
}

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "Show tag usage counts across the library",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		tags, err := s.ListTags()
		if err != nil {
			return err
		}
		if len(tags) == 0 {
			fmt.Println("No tags in use.")
			return nil
		}
		fmt.Println(headerStyle.Render("Tags"))
		for _, tc := range tags {
			fmt.Printf("  %s %s\n", tagStyle.Render(tc.Name), idStyle.Render(fmt.Sprintf("(%d)", tc.Count)))
		}
		return nil
	},
}

var getCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Show one prompt in full",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		p, err := s.GetPrompt(id)
		if err != nil {
			return err
		}
		if p == nil {
			return fmt.Errorf("prompt %d not found", id)
		}

		fmt.Println(headerStyle.Render(p.Title) + "  " + idStyle.Render(fmt.Sprintf("#%d", p.ID)))
		if len(p.Tags) > 0 {
			fmt.Println(tagStyle.Render(strings.Join(p.Tags, ", ")))
		}
		if p.ScoreCount > 0 {
			fmt.Println(scoreStyle.Render(fmt.Sprintf("score %.2f from %d rating(s)", p.ScoreAvg, p.ScoreCount)))
		}
		fmt.Printf("favorite: %v  created: %s  updated: %s\n\n",
			p.IsFavorite,
			p.CreatedAt.Local().Format("2006-01-02 15:04"),
			p.UpdatedAt.Local().Format("2006-01-02 15:04"))
		fmt.Println(p.Content)
		return nil
	},
}

var versionsCmd = &cobra.Command{
	Use:   "versions [id]",
	Short: "Show a prompt's version history, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		versions, err := s.ListVersions(id)
		if err != nil {
			return err
		}
		if len(versions) == 0 {
			fmt.Printf("No versions for prompt %d.\n", id)
			return nil
		}
		for _, v := range versions {
			fmt.Printf("%s %s %s\n",
				idStyle.Render(fmt.Sprintf("v%d", v.ID)),
				v.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				noteStyle.Render(v.ChangeNote))
			fmt.Println(indent(v.Content, "    "))
		}
		return nil
	},
}

var saveCmd = &cobra.Command{
	Use:   "save",
	Short: "Create a prompt, or update one when --id is given",
	RunE: func(cmd *cobra.Command, args []string) error {
		content := saveContent
		if saveContentFile != "" {
			data, err := os.ReadFile(saveContentFile)
			if err != nil {
				return fmt.Errorf("failed to read content file: %w", err)
			}
			content = string(data)
		}

		in := store.SavePromptInput{
			Title:      saveTitle,
			Content:    content,
			Tags:       saveTags,
			IsFavorite: saveFavorite,
			ChangeNote: saveNote,
		}
		if cmd.Flags().Changed("id") {
			in.ID = &saveID
		}

		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		p, err := s.SavePrompt(in)
		if err != nil {
			return err
		}
		logger.Info("prompt saved", zap.Int64("id", p.ID), zap.String("title", p.Title))
		fmt.Printf("Saved prompt #%d (%s)\n", p.ID, p.Title)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a prompt and its versions and usage logs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.DeletePrompt(id); err != nil {
			return err
		}
		fmt.Printf("Deleted prompt #%d\n", id)
		return nil
	},
}

var logCmd = &cobra.Command{
	Use:   "log [id]",
	Short: "Record a usage of a prompt, optionally with a 1-5 rating",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		in := store.LogUsageInput{
			PromptID:   id,
			OutputText: logOutput,
		}
		if logVars != "" {
			in.InputVars = json.RawMessage(logVars)
		}
		if cmd.Flags().Changed("rating") {
			in.Rating = &logRating
		}

		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.LogUsage(in); err != nil {
			return err
		}
		if in.Rating != nil {
			p, err := s.GetPrompt(id)
			if err == nil && p != nil {
				fmt.Printf("Logged usage of #%d, score now %.2f from %d rating(s)\n", id, p.ScoreAvg, p.ScoreCount)
				return nil
			}
		}
		fmt.Printf("Logged usage of #%d\n", id)
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Export the library as a JSON snapshot (stdout when no file given)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		data, err := s.ExportJSON()
		if err != nil {
			return err
		}

		if len(args) == 0 {
			fmt.Println(data)
			return nil
		}
		if err := os.WriteFile(args[0], []byte(data), 0644); err != nil {
			return fmt.Errorf("failed to write snapshot: %w", err)
		}
		fmt.Printf("Exported library to %s\n", args[0])
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import prompts from a JSON snapshot file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read snapshot: %w", err)
		}

		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		imported, err := s.ImportJSON(string(data))
		if err != nil {
			return err
		}
		logger.Info("snapshot imported", zap.Int("prompts", imported), zap.String("file", args[0]))
		fmt.Printf("Imported %d prompt(s) from %s\n", imported, args[0])
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show library row counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		stats, err := s.Stats()
		if err != nil {
			return err
		}
		fmt.Println(headerStyle.Render("Library: " + s.Path()))
		for _, table := range []string{"prompts", "prompt_versions", "usage_logs"} {
			fmt.Printf("  %-16s %d\n", table, stats[table])
		}
		return nil
	},
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid prompt id %q", arg)
	}
	return id, nil
}

func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}

func init() {
	listCmd.Flags().StringVar(&listSearch, "search", "", "Substring match over title, content, and tags")
	listCmd.Flags().StringVar(&listTag, "tag", "", "Only prompts carrying this exact tag")
	listCmd.Flags().StringVar(&listSort, "sort", "", "Sort order: score, created, or updated (default)")

	saveCmd.Flags().Int64Var(&saveID, "id", 0, "Prompt id to update (omit to create)")
	saveCmd.Flags().StringVar(&saveTitle, "title", "", "Prompt title")
	saveCmd.Flags().StringVar(&saveContent, "content", "", "Prompt content")
	saveCmd.Flags().StringVar(&saveContentFile, "content-file", "", "Read prompt content from a file")
	saveCmd.Flags().StringSliceVar(&saveTags, "tags", nil, "Comma-separated tags")
	saveCmd.Flags().BoolVar(&saveFavorite, "favorite", false, "Mark as favorite")
	saveCmd.Flags().StringVar(&saveNote, "note", "", "Change note for the version history")

	logCmd.Flags().StringVar(&logOutput, "output", "", "Output text produced by the prompt")
	logCmd.Flags().StringVar(&logVars, "vars", "", "Input variables as a JSON object")
	logCmd.Flags().Int64Var(&logRating, "rating", 0, "Rating from 1 to 5")
}
