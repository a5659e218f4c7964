package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ShouryaDesai135/VeriFind/internal/config"
)

// --- report ---

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Report a lost or found item",
	Long: `Report a lost or found item.

Examples:
  verifind report --kind lost --title "Blue water bottle" --owner alice --location "Central Park"
  verifind report --kind found --title "Black wallet" --owner bob \
    --secret-question "What brand is it?" --secret-answer "Fossil"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, _ := cmd.Flags().GetString("kind")
		title, _ := cmd.Flags().GetString("title")
		owner, _ := cmd.Flags().GetString("owner")
		description, _ := cmd.Flags().GetString("description")
		location, _ := cmd.Flags().GetString("location")
		category, _ := cmd.Flags().GetString("category")
		question, _ := cmd.Flags().GetString("secret-question")
		answer, _ := cmd.Flags().GetString("secret-answer")

		if kind == "" || title == "" || owner == "" {
			return fmt.Errorf("--kind, --title, and --owner are required")
		}
		if kind == "found" && (question == "" || answer == "") {
			return fmt.Errorf("found items require --secret-question and --secret-answer")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		req := map[string]any{
			"kind":     kind,
			"title":    title,
			"owner_id": owner,
		}
		if description != "" {
			req["description"] = description
		}
		if location != "" {
			req["location"] = location
		}
		if category != "" {
			req["category"] = category
		}
		if question != "" {
			req["secret_question"] = question
			req["secret_answer"] = answer
		}

		resp, err := client.post("/items", req)
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Reported %s item %s", kind, result["id"])
		return nil
	},
}

func init() {
	reportCmd.Flags().String("kind", "", "item kind: lost or found")
	reportCmd.Flags().String("title", "", "short item title")
	reportCmd.Flags().String("owner", "", "identity of the reporting user")
	reportCmd.Flags().String("description", "", "free-text description")
	reportCmd.Flags().String("location", "", "where the item was lost or found")
	reportCmd.Flags().String("category", "", "item category")
	reportCmd.Flags().String("secret-question", "", "ownership challenge (found items)")
	reportCmd.Flags().String("secret-answer", "", "expected challenge answer (found items)")
}

// --- items ---

var itemsCmd = &cobra.Command{
	Use:   "items",
	Short: "List reported items",
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, _ := cmd.Flags().GetString("kind")
		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		path := fmt.Sprintf("/items?limit=%d", limit)
		if kind != "" {
			path += "&kind=" + kind
		}
		if status != "" {
			path += "&status=" + status
		}

		resp, err := client.get(path)
		if err != nil {
			return err
		}

		var items []struct {
			ID        string    `json:"id"`
			Kind      string    `json:"kind"`
			Status    string    `json:"status"`
			Title     string    `json:"title"`
			Location  string    `json:"location"`
			CreatedAt time.Time `json:"created_at"`
		}
		if err := decodeJSON(resp, &items); err != nil {
			return err
		}

		if len(items) == 0 {
			fmt.Println("No items found.")
			return nil
		}

		for _, it := range items {
			line := fmt.Sprintf("%s  %-5s  %-9s  %s",
				colorize(colorCyan, it.ID[:8]),
				it.Kind,
				it.Status,
				it.Title,
			)
			if it.Location != "" {
				line += fmt.Sprintf("  (%s)", it.Location)
			}
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	itemsCmd.Flags().String("kind", "", "filter by kind: lost or found")
	itemsCmd.Flags().String("status", "", "filter by status: available, claimed, or resolved")
	itemsCmd.Flags().Int("limit", 50, "maximum number of items to list")
}

// --- claim ---

var claimCmd = &cobra.Command{
	Use:   "claim <item-id>",
	Short: "Claim a found item by answering its secret challenge",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		claimant, _ := cmd.Flags().GetString("claimant")
		answer, _ := cmd.Flags().GetString("answer")

		if claimant == "" || answer == "" {
			return fmt.Errorf("--claimant and --answer are required")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post("/items/"+args[0]+"/claim", map[string]any{
			"claimant_id": claimant,
			"response":    answer,
		})
		if err != nil {
			return err
		}

		var result struct {
			Accepted bool   `json:"accepted"`
			Code     string `json:"code"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if !result.Accepted {
			printError("Claim rejected: wrong answer")
			return nil
		}

		printSuccess("Claim accepted")
		fmt.Printf("Handover code: %s\n", colorize(colorBold, result.Code))
		fmt.Println("Share this code with the poster in person to complete the handover.")
		return nil
	},
}

func init() {
	claimCmd.Flags().String("claimant", "", "identity of the claimant")
	claimCmd.Flags().String("answer", "", "answer to the item's secret question")
}

// --- resolve ---

var resolveCmd = &cobra.Command{
	Use:   "resolve <item-id>",
	Short: "Complete a handover using the claimant's code",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		poster, _ := cmd.Flags().GetString("poster")
		code, _ := cmd.Flags().GetString("code")

		if poster == "" || code == "" {
			return fmt.Errorf("--poster and --code are required")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post("/items/"+args[0]+"/resolve", map[string]any{
			"poster_id": poster,
			"code":      code,
		})
		if err != nil {
			return err
		}

		var result struct {
			Accepted bool `json:"accepted"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if !result.Accepted {
			printError("Resolve rejected: wrong handover code")
			return nil
		}

		printSuccess("Item resolved")
		return nil
	},
}

func init() {
	resolveCmd.Flags().String("poster", "", "identity of the poster")
	resolveCmd.Flags().String("code", "", "handover code presented by the claimant")
}

// --- matches ---

var matchesCmd = &cobra.Command{
	Use:   "matches <user-id>",
	Short: "List proposed matches for a user's items",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(fmt.Sprintf("/matches/%s?limit=%d", args[0], limit))
		if err != nil {
			return err
		}

		var matches []struct {
			ID      string  `json:"id"`
			LostID  string  `json:"lost_id"`
			FoundID string  `json:"found_id"`
			Score   float64 `json:"score"`
		}
		if err := decodeJSON(resp, &matches); err != nil {
			return err
		}

		if len(matches) == 0 {
			fmt.Println("No matches found.")
			return nil
		}

		for _, m := range matches {
			fmt.Printf("%s  lost %s ↔ found %s  [score: %.3f]\n",
				colorize(colorCyan, m.ID[:8]),
				m.LostID[:8],
				m.FoundID[:8],
				m.Score,
			)
		}
		return nil
	},
}

func init() {
	matchesCmd.Flags().Int("limit", 20, "maximum number of matches to list")
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
