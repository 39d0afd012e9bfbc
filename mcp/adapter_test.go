package mcp

import (
	"context"
	"encoding/json"
	"testing"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	x402 "github.com/bankofai/x402/go"
	"github.com/bankofai/x402/go/test/mocks/cash"
)

// newWeatherServer starts an in-memory MCP server with a cash-priced get_weather tool
// and returns a connected client session
func newWeatherServer(t *testing.T) *mcpsdk.ClientSession {
	t.Helper()
	ctx := context.Background()

	required := cash.BuildPaymentRequired("mcp://tool/get_weather",
		cash.BuildPaymentRequirements("merchant", "USD", "5"))

	server := mcpsdk.NewServer(&mcpsdk.Implementation{Name: "weather", Version: "1.0.0"}, nil)
	server.AddTool(&mcpsdk.Tool{
		Name:        "get_weather",
		Description: "Current weather, paid in cash",
		InputSchema: json.RawMessage(`{"type": "object", "properties": {"city": {"type": "string"}}}`),
	}, func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		var payment interface{}
		if req.Params.Meta != nil {
			payment = req.Params.Meta.GetMeta()[MCP_PAYMENT_META_KEY]
		}

		if payment == nil {
			data, _ := json.Marshal(required)
			var structured map[string]interface{}
			_ = json.Unmarshal(data, &structured)
			return &mcpsdk.CallToolResult{
				IsError:           true,
				Content:           []mcpsdk.Content{&mcpsdk.TextContent{Text: string(data)}},
				StructuredContent: structured,
			}, nil
		}

		data, _ := json.Marshal(payment)
		var payload x402.PaymentPayload
		if err := json.Unmarshal(data, &payload); err != nil {
			return &mcpsdk.CallToolResult{
				IsError: true,
				Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: err.Error()}},
			}, nil
		}

		var args map[string]interface{}
		_ = json.Unmarshal(req.Params.Arguments, &args)

		return &mcpsdk.CallToolResult{
			Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: "sunny in " + args["city"].(string)}},
			Meta:    mcpsdk.Meta{MCP_PAYMENT_RESPONSE_META_KEY: cash.Settle(payload)},
		}, nil
	})

	serverTransport, clientTransport := mcpsdk.NewInMemoryTransports()
	if _, err := server.Connect(ctx, serverTransport, nil); err != nil {
		t.Fatalf("server connect: %v", err)
	}

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "x402-test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func TestSDKAdapter_PaidToolCall(t *testing.T) {
	session := newWeatherServer(t)

	mechanism := cash.NewSchemeNetworkClient("alice")
	client := NewX402MCPClientFromConfig(NewMCPClientAdapter(session), []SchemeRegistration{
		{Network: cash.Network, Client: mechanism},
	}, Options{})

	result, err := client.CallTool(context.Background(), "get_weather", map[string]interface{}{"city": "Lisbon"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if !result.PaymentMade {
		t.Error("Expected payment to be made")
	}
	if len(result.Content) != 1 || result.Content[0].Text != "sunny in Lisbon" {
		t.Errorf("Unexpected content: %+v", result.Content)
	}
	if result.PaymentResponse == nil || !result.PaymentResponse.Success {
		t.Fatalf("Expected successful settlement, got %+v", result.PaymentResponse)
	}
	if result.PaymentResponse.Network != cash.Network {
		t.Errorf("Unexpected settlement network %s", result.PaymentResponse.Network)
	}
	if mechanism.Calls() != 1 {
		t.Errorf("Expected one payment, got %d", mechanism.Calls())
	}
}

func TestSDKAdapter_RequirementsAndListTools(t *testing.T) {
	session := newWeatherServer(t)
	adapter := NewMCPClientAdapter(session)
	client := NewX402MCPClient(adapter, x402.Newx402Client(), Options{})

	required, err := client.GetToolPaymentRequirements(context.Background(), "get_weather", map[string]interface{}{"city": "Lisbon"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if required == nil || len(required.Accepts) != 1 || required.Accepts[0].Amount != "5" {
		t.Fatalf("Unexpected requirements: %+v", required)
	}

	tools, err := client.ListTools(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	listed, ok := tools.(*mcpsdk.ListToolsResult)
	if !ok || len(listed.Tools) != 1 || listed.Tools[0].Name != "get_weather" {
		t.Errorf("Unexpected tool list: %#v", tools)
	}
}
