package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"docrag/internal/adapter/generation"
	"docrag/internal/usecase"
)

const chatStoreKey = "chatbot"

var (
	chatIn       []string
	chatAPIURL   string
	chatQueries  []string
	chatTopK     int
	chatNPredict int
	chatPrompt   bool
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Answer questions grounded in documents",
	Long: `Build a store from the given documents, retrieve context for each question
and send the grounded prompt to a completion endpoint. The endpoint's JSON
response is printed as-is.

Examples:
  docrag chat -i manual.pdf -u http://localhost:8080/completion -q "How do I reset it?"
  docrag chat -i ./docs -q "Summarise the policy" --prompt-only`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringSliceVarP(&chatIn, "input", "i", nil, "input files or folders (required)")
	chatCmd.Flags().StringVarP(&chatAPIURL, "api-url", "u", "", "completion endpoint (default from config)")
	chatCmd.Flags().StringArrayVarP(&chatQueries, "query", "q", nil, "question, repeatable (required)")
	chatCmd.Flags().IntVar(&chatTopK, "top-k", 0, "context documents per question (default from config)")
	chatCmd.Flags().IntVar(&chatNPredict, "n-predict", 0, "tokens to generate (default from config)")
	chatCmd.Flags().BoolVar(&chatPrompt, "prompt-only", false, "print the prompt without calling the endpoint")
	chatCmd.MarkFlagRequired("input")
	chatCmd.MarkFlagRequired("query")
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	svc, err := newServices(cfg, true)
	if err != nil {
		return err
	}
	defer svc.Close()

	paths, err := svc.walker.Expand(chatIn)
	if err != nil {
		return err
	}
	if _, err := svc.registry.Build(cmd.Context(), chatStoreKey, paths); err != nil {
		return err
	}

	opts := []usecase.OrchestratorOption{
		usecase.WithDefaults(cfg.Retrieve.TopK, cfg.Generation.NPredict),
		usecase.WithOrchestratorLogger(GetLogger().Named("orchestrator")),
	}
	apiURL := chatAPIURL
	if apiURL == "" {
		apiURL = cfg.Generation.APIURL
	}
	if !chatPrompt {
		if apiURL == "" {
			return fmt.Errorf("no completion endpoint: pass --api-url or set generation.api_url")
		}
		client, err := generation.NewClient(apiURL,
			generation.WithHeaders(cfg.Generation.Headers),
			generation.WithTimeout(cfg.GenerationTimeout()),
			generation.WithLogger(GetLogger().Named("generation")))
		if err != nil {
			return err
		}
		opts = append(opts, usecase.WithGenerator(client))
	}
	orch := usecase.NewOrchestrator(svc.registry, opts...)

	for _, q := range chatQueries {
		if chatPrompt {
			prompt, err := orch.BuildPrompt(cmd.Context(), q, chatStoreKey, chatTopK)
			if err != nil {
				return err
			}
			fmt.Println(prompt)
			continue
		}
		answer, err := orch.Answer(cmd.Context(), q, chatStoreKey, usecase.AnswerOptions{
			TopK:     chatTopK,
			NPredict: chatNPredict,
		})
		if err != nil {
			return err
		}
		fmt.Println(string(answer))
	}
	return nil
}
