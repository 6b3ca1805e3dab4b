package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/meikuraledutech/flowagent"
	"github.com/meikuraledutech/flowagent/capability"
	"github.com/meikuraledutech/flowagent/memory"
	"github.com/meikuraledutech/flowagent/mermaid"
	"github.com/meikuraledutech/flowagent/n8n"
	"github.com/meikuraledutech/flowagent/pipeline"
)

const diagram = `graph TD
  A[Webhook] --> B[Search Docs]
  B --> C[Ask Claude]
  C --> D[Slack Notify]`

// printEmitter converts the structure and echoes the workflow instead of calling n8n.
type printEmitter struct{}

func (printEmitter) Emit(_ context.Context, s *flowagent.Structure) (json.RawMessage, error) {
	return json.Marshal(n8n.Convert(s, "Example Workflow"))
}

func main() {
	ctx := context.Background()

	// ── Parse ─────────────────────────────────────────────────────────
	s, err := mermaid.Parse(diagram)
	if err != nil {
		log.Fatalf("parse: %v", err)
	}
	fmt.Println("structure parsed")
	printJSON(s)

	// ── Convert ───────────────────────────────────────────────────────
	fmt.Println("\nn8n workflow")
	printJSON(n8n.Convert(s, "Example Workflow"))

	// ── Chat through the pipeline ─────────────────────────────────────
	// Set MCP_SERVERS and MCP_SERVER_<KEY>_URL to see providers attached.
	var store flowagent.Store = memory.New(memory.Options{})
	svc := pipeline.New(pipeline.Config{
		Store:    store,
		Enhancer: capability.New(capability.LoadProviders(os.LookupEnv), capability.Options{}),
		Emitter:  printEmitter{},
	})

	resp, err := svc.Chat(ctx, pipeline.Request{
		Message:   diagram,
		SessionID: "example",
		InputType: pipeline.InputMermaid,
	})
	if err != nil {
		log.Fatalf("chat: %v", err)
	}
	fmt.Println("\n" + resp.Message)

	// ── History ───────────────────────────────────────────────────────
	history, err := svc.History(ctx, "example")
	if err != nil {
		log.Fatalf("history: %v", err)
	}
	fmt.Printf("\nhistory (%d entries)\n", len(history))
	printJSON(history)

	// ── Cleanup ───────────────────────────────────────────────────────
	if err := svc.ClearHistory(ctx, "example"); err != nil {
		log.Fatalf("clear: %v", err)
	}
	fmt.Println("\nhistory cleared")
}

func printJSON(v any) {
	out, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(out))
}
