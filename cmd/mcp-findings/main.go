// Command mcp-findings is a stdio MCP server scoped to a single review or
// fix session. The agent runtime launches and owns its process; the
// orchestrator only registers it by path and tears it down by disconnect,
// never talking to it directly (see pkg/mcp).
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/codeready-toolchain/opencode-studio/pkg/findings"
	"github.com/codeready-toolchain/opencode-studio/pkg/version"
)

type reportFindingInput struct {
	FilePath string `json:"file_path" jsonschema:"path of the file the finding applies to, relative to the workspace root"`
	Line     int    `json:"line,omitempty" jsonschema:"line number the finding applies to, if any"`
	Severity string `json:"severity" jsonschema:"one of low, medium, high, critical"`
	Message  string `json:"message" jsonschema:"a concise description of the issue and how to fix it"`
}

type reportFindingOutput struct {
	Recorded int `json:"recorded"`
}

type listFindingsInput struct{}

type listFindingsOutput struct {
	Findings []findings.Finding `json:"findings"`
}

func main() {
	taskID := flag.String("task-id", "", "task this session belongs to")
	sessionID := flag.String("session-id", "", "agent-runtime session this server is scoped to")
	workspace := flag.String("workspace", "", "workspace directory the findings refer to")
	findingsPath := flag.String("findings-path", "", "JSON file findings are persisted to")
	flag.Parse()

	if *findingsPath == "" {
		log.Fatal("mcp-findings: --findings-path is required")
	}

	logger := slog.Default().With("task_id", *taskID, "session_id", *sessionID, "workspace", *workspace)
	store := findings.NewStore(*findingsPath)

	server := mcpsdk.NewServer(&mcpsdk.Implementation{
		Name:    "opencode-findings",
		Version: version.GitCommit,
	}, nil)

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "report_finding",
		Description: "Record one structured review finding (file, line, severity, message) for the fix phase to address.",
	}, func(ctx context.Context, req *mcpsdk.CallToolRequest, in reportFindingInput) (*mcpsdk.CallToolResult, reportFindingOutput, error) {
		severity := findings.Severity(in.Severity)
		switch severity {
		case findings.SeverityLow, findings.SeverityMedium, findings.SeverityHigh, findings.SeverityCritical:
		default:
			severity = findings.SeverityMedium
		}

		if err := store.Append(findings.Finding{
			FilePath: in.FilePath,
			Line:     in.Line,
			Severity: severity,
			Message:  in.Message,
		}); err != nil {
			return nil, reportFindingOutput{}, err
		}

		all, err := store.List()
		if err != nil {
			return nil, reportFindingOutput{}, err
		}
		logger.Info("finding recorded", "file", in.FilePath, "severity", severity, "total", len(all))
		return nil, reportFindingOutput{Recorded: len(all)}, nil
	})

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "list_findings",
		Description: "List every finding recorded so far for this task.",
	}, func(ctx context.Context, req *mcpsdk.CallToolRequest, in listFindingsInput) (*mcpsdk.CallToolResult, listFindingsOutput, error) {
		all, err := store.List()
		if err != nil {
			return nil, listFindingsOutput{}, err
		}
		return nil, listFindingsOutput{Findings: all}, nil
	})

	if err := server.Run(context.Background(), &mcpsdk.StdioTransport{}); err != nil {
		log.Fatalf("mcp-findings: server exited: %v", err)
	}
}
