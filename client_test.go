package x402

import (
	"context"
	"errors"
	"testing"
)

// Mock client for testing
type mockSchemeNetworkClient struct {
	scheme        string
	createPayload func(ctx context.Context, requirements PaymentRequirements, extensions map[string]interface{}) (PartialPaymentPayload, error)
	calls         int
}

func (m *mockSchemeNetworkClient) Scheme() string {
	return m.scheme
}

func (m *mockSchemeNetworkClient) CreatePaymentPayload(ctx context.Context, requirements PaymentRequirements, extensions map[string]interface{}) (PartialPaymentPayload, error) {
	m.calls++
	if m.createPayload != nil {
		return m.createPayload(ctx, requirements, extensions)
	}
	return PartialPaymentPayload{
		X402Version: ProtocolVersion,
		Payload: map[string]interface{}{
			"signature": "mock_signature",
			"from":      "0xmock",
		},
	}, nil
}

func offer(scheme string, network Network, amount string) PaymentRequirements {
	return PaymentRequirements{
		Scheme:            scheme,
		Network:           network,
		Asset:             "0xasset",
		Amount:            amount,
		PayTo:             "0xrecipient",
		MaxTimeoutSeconds: 300,
	}
}

func envelope(accepts ...PaymentRequirements) PaymentRequired {
	return PaymentRequired{
		X402Version: ProtocolVersion,
		Error:       "payment required",
		Resource:    &ResourceInfo{URL: "https://api.example.com/declared", Description: "report", MimeType: "application/json"},
		Accepts:     accepts,
	}
}

func TestNewx402Client(t *testing.T) {
	client := Newx402Client()
	if client == nil {
		t.Fatal("Expected client to be created")
	}
	if client.logger == nil {
		t.Fatal("Expected a default logger")
	}
	if len(client.GetRegisteredSchemes()) != 0 {
		t.Fatal("Expected no registrations")
	}
}

func TestClientRegisterScheme(t *testing.T) {
	client := Newx402Client(WithScheme("eip155:8453", &mockSchemeNetworkClient{scheme: "exact"}))
	client.
		Register("tron:*", &mockSchemeNetworkClient{scheme: "exact"}).
		Register("*", &mockSchemeNetworkClient{scheme: "native_exact"})

	registered := client.GetRegisteredSchemes()
	want := []RegisteredScheme{
		{Network: "eip155:8453", Scheme: "exact"},
		{Network: "tron:*", Scheme: "exact"},
		{Network: "*", Scheme: "native_exact"},
	}
	if len(registered) != len(want) {
		t.Fatalf("Expected %d registrations, got %d", len(want), len(registered))
	}
	for i := range want {
		if registered[i] != want[i] {
			t.Errorf("registration %d: expected %+v, got %+v", i, want[i], registered[i])
		}
	}
}

func TestClientFirstRegistrationWins(t *testing.T) {
	specific := &mockSchemeNetworkClient{scheme: "exact"}
	wildcard := &mockSchemeNetworkClient{scheme: "exact"}

	client := Newx402Client().
		Register("tron:*", wildcard).
		Register("tron:3448148188", specific)

	_, mechanism, err := client.SelectPaymentRequirements(context.Background(), []PaymentRequirements{
		offer("exact", "tron:3448148188", "100"),
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if mechanism != wildcard {
		t.Error("Expected the earlier wildcard registration to win")
	}
}

func TestClientSelectPaymentRequirements(t *testing.T) {
	client := Newx402Client().
		Register("eip155:*", &mockSchemeNetworkClient{scheme: "exact"})

	t.Run("first payable offer in order", func(t *testing.T) {
		selected, _, err := client.SelectPaymentRequirements(context.Background(), []PaymentRequirements{
			offer("exact", "solana:mainnet", "1"),
			offer("exact", "eip155:8453", "2"),
			offer("exact", "eip155:1", "3"),
		})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if selected.Network != "eip155:8453" || selected.Amount != "2" {
			t.Errorf("Unexpected selection %+v", selected)
		}
	})

	t.Run("empty offers", func(t *testing.T) {
		_, _, err := client.SelectPaymentRequirements(context.Background(), nil)
		if !errors.Is(err, ErrNoAcceptablePayment) {
			t.Errorf("Expected ErrNoAcceptablePayment, got %v", err)
		}
	})

	t.Run("unknown network", func(t *testing.T) {
		_, _, err := client.SelectPaymentRequirements(context.Background(), []PaymentRequirements{
			offer("exact", "tron:728126428", "1"),
		})
		if !errors.Is(err, ErrUnsupportedNetwork) {
			t.Errorf("Expected ErrUnsupportedNetwork, got %v", err)
		}
		if errors.Is(err, ErrUnsupportedScheme) {
			t.Error("Did not expect ErrUnsupportedScheme")
		}
	})

	t.Run("known network, unknown scheme", func(t *testing.T) {
		_, _, err := client.SelectPaymentRequirements(context.Background(), []PaymentRequirements{
			offer("upto", "eip155:8453", "1"),
		})
		if !errors.Is(err, ErrUnsupportedScheme) {
			t.Errorf("Expected ErrUnsupportedScheme, got %v", err)
		}
	})
}

func TestClientPolicyChain(t *testing.T) {
	var order []string
	dropFirst := PaymentPolicyFunc(func(ctx context.Context, reqs []PaymentRequirements) ([]PaymentRequirements, error) {
		order = append(order, "dropFirst")
		return reqs[1:], nil
	})
	record := PaymentPolicyFunc(func(ctx context.Context, reqs []PaymentRequirements) ([]PaymentRequirements, error) {
		order = append(order, "record")
		if len(reqs) != 1 {
			t.Errorf("Expected the previous policy output, got %d offers", len(reqs))
		}
		return reqs, nil
	})

	client := Newx402Client(WithPolicy(dropFirst)).
		RegisterPolicy(record).
		Register("eip155:*", &mockSchemeNetworkClient{scheme: "exact"})

	reqs := []PaymentRequirements{offer("exact", "eip155:1", "1"), offer("exact", "eip155:8453", "2")}
	selected, _, err := client.SelectPaymentRequirements(context.Background(), reqs)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if selected.Network != "eip155:8453" {
		t.Errorf("Expected eip155:8453, got %s", selected.Network)
	}
	if len(order) != 2 || order[0] != "dropFirst" || order[1] != "record" {
		t.Errorf("Unexpected policy order %v", order)
	}
	if reqs[0].Network != "eip155:1" {
		t.Error("Expected the caller's slice to be left untouched")
	}

	t.Run("policy removing everything", func(t *testing.T) {
		client := Newx402Client(WithPolicy(PaymentPolicyFunc(func(ctx context.Context, reqs []PaymentRequirements) ([]PaymentRequirements, error) {
			return nil, nil
		}))).Register("eip155:*", &mockSchemeNetworkClient{scheme: "exact"})

		_, _, err := client.SelectPaymentRequirements(context.Background(), reqs)
		if !errors.Is(err, ErrNoAcceptablePayment) {
			t.Errorf("Expected ErrNoAcceptablePayment, got %v", err)
		}
	})

	t.Run("policy error", func(t *testing.T) {
		boom := errors.New("rpc down")
		client := Newx402Client(WithPolicy(PaymentPolicyFunc(func(ctx context.Context, reqs []PaymentRequirements) ([]PaymentRequirements, error) {
			return nil, boom
		}))).Register("eip155:*", &mockSchemeNetworkClient{scheme: "exact"})

		_, _, err := client.SelectPaymentRequirements(context.Background(), reqs)
		if !errors.Is(err, boom) {
			t.Errorf("Expected the policy error, got %v", err)
		}
	})
}

func TestClientSelectAndPay(t *testing.T) {
	mechanism := &mockSchemeNetworkClient{scheme: "exact"}
	client := Newx402Client().Register("eip155:*", mechanism)

	t.Run("binds the request url", func(t *testing.T) {
		payload, err := client.SelectAndPay(context.Background(), envelope(offer("exact", "eip155:8453", "10")), "https://api.example.com/actual")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if payload.X402Version != ProtocolVersion {
			t.Errorf("Expected version %d, got %d", ProtocolVersion, payload.X402Version)
		}
		if payload.Resource == nil || payload.Resource.URL != "https://api.example.com/actual" {
			t.Fatalf("Expected the request url in the resource, got %+v", payload.Resource)
		}
		if payload.Resource.Description != "report" || payload.Resource.MimeType != "application/json" {
			t.Errorf("Expected the declared description to be kept, got %+v", payload.Resource)
		}
		if payload.Accepted.Amount != "10" {
			t.Errorf("Expected accepted requirements to be echoed, got %+v", payload.Accepted)
		}
		if payload.Payload["signature"] != "mock_signature" {
			t.Errorf("Unexpected payload %v", payload.Payload)
		}
		if payload.Extensions == nil {
			t.Error("Expected a non-nil extensions map")
		}
	})

	t.Run("declared resource without url", func(t *testing.T) {
		payload, err := client.CreatePaymentForRequired(context.Background(), envelope(offer("exact", "eip155:8453", "10")))
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if payload.Resource == nil || payload.Resource.URL != "https://api.example.com/declared" {
			t.Errorf("Expected the declared resource, got %+v", payload.Resource)
		}
	})

	t.Run("version mismatch", func(t *testing.T) {
		required := envelope(offer("exact", "eip155:8453", "10"))
		required.X402Version = 1
		before := mechanism.calls

		_, err := client.SelectAndPay(context.Background(), required, "")
		if !errors.Is(err, ErrMalformedPaymentRequired) {
			t.Errorf("Expected ErrMalformedPaymentRequired, got %v", err)
		}
		if mechanism.calls != before {
			t.Error("Expected no signing on a version mismatch")
		}
	})

	t.Run("mechanism error", func(t *testing.T) {
		boom := errors.New("signer offline")
		client := Newx402Client().Register("eip155:*", &mockSchemeNetworkClient{
			scheme: "exact",
			createPayload: func(ctx context.Context, requirements PaymentRequirements, extensions map[string]interface{}) (PartialPaymentPayload, error) {
				return PartialPaymentPayload{}, boom
			},
		})

		_, err := client.SelectAndPay(context.Background(), envelope(offer("exact", "eip155:8453", "10")), "")
		if !errors.Is(err, boom) {
			t.Errorf("Expected the mechanism error, got %v", err)
		}
	})

	t.Run("mechanism returning no payload", func(t *testing.T) {
		client := Newx402Client().Register("eip155:*", &mockSchemeNetworkClient{
			scheme: "exact",
			createPayload: func(ctx context.Context, requirements PaymentRequirements, extensions map[string]interface{}) (PartialPaymentPayload, error) {
				return PartialPaymentPayload{}, nil
			},
		})

		_, err := client.SelectAndPay(context.Background(), envelope(offer("exact", "eip155:8453", "10")), "")
		if !errors.Is(err, ErrInvalidPayment) {
			t.Errorf("Expected ErrInvalidPayment, got %v", err)
		}
	})
}

func TestClientCreatePaymentPayload(t *testing.T) {
	client := Newx402Client().Register("eip155:*", &mockSchemeNetworkClient{scheme: "exact"})
	resource := &ResourceInfo{URL: "https://api.example.com/data"}

	payload, err := client.CreatePaymentPayload(context.Background(), offer("exact", "eip155:8453", "5"), resource, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if payload.Resource != resource {
		t.Error("Expected the given resource")
	}

	invalid := offer("exact", "eip155:8453", "5")
	invalid.PayTo = ""
	if _, err := client.CreatePaymentPayload(context.Background(), invalid, resource, nil); !errors.Is(err, ErrInvalidPayment) {
		t.Errorf("Expected ErrInvalidPayment, got %v", err)
	}

	if _, err := client.CreatePaymentPayload(context.Background(), offer("exact", "tron:728126428", "5"), resource, nil); !errors.Is(err, ErrUnsupportedScheme) {
		t.Errorf("Expected ErrUnsupportedScheme, got %v", err)
	}
}

func TestClientCanPay(t *testing.T) {
	client := Newx402Client().Register("tron:*", &mockSchemeNetworkClient{scheme: "exact"})

	if !client.CanPay(context.Background(), []PaymentRequirements{offer("exact", "tron:3448148188", "1")}) {
		t.Error("Expected a tron offer to be payable")
	}
	if client.CanPay(context.Background(), []PaymentRequirements{offer("exact", "eip155:1", "1")}) {
		t.Error("Did not expect an eip155 offer to be payable")
	}
}

func TestClientHooks(t *testing.T) {
	required := envelope(offer("exact", "eip155:8453", "10"))

	t.Run("before hook aborts", func(t *testing.T) {
		mechanism := &mockSchemeNetworkClient{scheme: "exact"}
		client := Newx402Client(
			WithScheme("eip155:*", mechanism),
			WithBeforePaymentCreationHook(func(ctx PaymentCreationContext) (*BeforePaymentCreationHookResult, error) {
				return &BeforePaymentCreationHookResult{Abort: true, Reason: "budget"}, nil
			}),
		)

		_, err := client.SelectAndPay(context.Background(), required, "")
		if !errors.Is(err, ErrPaymentAborted) {
			t.Fatalf("Expected ErrPaymentAborted, got %v", err)
		}
		var paymentErr *PaymentError
		if !errors.As(err, &paymentErr) || paymentErr.Details["reason"] != "budget" {
			t.Errorf("Expected the abort reason in details, got %v", err)
		}
		if mechanism.calls != 0 {
			t.Error("Expected the mechanism not to be called")
		}
	})

	t.Run("before hook error", func(t *testing.T) {
		boom := errors.New("hook failed")
		client := Newx402Client(WithScheme("eip155:*", &mockSchemeNetworkClient{scheme: "exact"})).
			OnBeforePaymentCreation(func(ctx PaymentCreationContext) (*BeforePaymentCreationHookResult, error) {
				return nil, boom
			})

		if _, err := client.SelectAndPay(context.Background(), required, ""); !errors.Is(err, boom) {
			t.Errorf("Expected the hook error, got %v", err)
		}
	})

	t.Run("before hook adds an extension", func(t *testing.T) {
		client := Newx402Client(WithScheme("eip155:*", &mockSchemeNetworkClient{scheme: "exact"})).
			OnBeforePaymentCreation(func(ctx PaymentCreationContext) (*BeforePaymentCreationHookResult, error) {
				ctx.Extensions["trace"] = "abc"
				return nil, nil
			})

		payload, err := client.SelectAndPay(context.Background(), required, "")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if payload.Extensions["trace"] != "abc" {
			t.Errorf("Expected the hook extension, got %v", payload.Extensions)
		}
		if required.Extensions != nil {
			t.Error("Expected the envelope to be left untouched")
		}
	})

	t.Run("after hook sees the payload", func(t *testing.T) {
		var seen PaymentCreationResultContext
		client := Newx402Client(WithScheme("eip155:*", &mockSchemeNetworkClient{scheme: "exact"})).
			OnAfterPaymentCreation(func(ctx PaymentCreationResultContext) error {
				seen = ctx
				return errors.New("ignored")
			})

		payload, err := client.SelectAndPay(context.Background(), required, "https://api.example.com/x")
		if err != nil {
			t.Fatalf("after hook errors must not fail the payment: %v", err)
		}
		if seen.Payload.Payload["signature"] != payload.Payload["signature"] {
			t.Error("Expected the after hook to see the created payload")
		}
		if seen.Resource == nil || seen.Resource.URL != "https://api.example.com/x" {
			t.Errorf("Unexpected resource %+v", seen.Resource)
		}
	})

	t.Run("failure hook recovers", func(t *testing.T) {
		boom := errors.New("signer offline")
		recovered := PaymentPayload{
			X402Version: ProtocolVersion,
			Accepted:    required.Accepts[0],
			Payload:     map[string]interface{}{"signature": "backup"},
		}

		var hookErr error
		client := Newx402Client(WithScheme("eip155:*", &mockSchemeNetworkClient{
			scheme: "exact",
			createPayload: func(ctx context.Context, requirements PaymentRequirements, extensions map[string]interface{}) (PartialPaymentPayload, error) {
				return PartialPaymentPayload{}, boom
			},
		})).
			OnPaymentCreationFailure(func(ctx PaymentCreationFailureContext) (*PaymentCreationFailureHookResult, error) {
				return nil, errors.New("first hook broken")
			}).
			OnPaymentCreationFailure(func(ctx PaymentCreationFailureContext) (*PaymentCreationFailureHookResult, error) {
				hookErr = ctx.Error
				return &PaymentCreationFailureHookResult{Recovered: true, Payload: recovered}, nil
			})

		payload, err := client.SelectAndPay(context.Background(), required, "")
		if err != nil {
			t.Fatalf("Expected recovery, got %v", err)
		}
		if payload.Payload["signature"] != "backup" {
			t.Errorf("Expected the recovered payload, got %v", payload.Payload)
		}
		if !errors.Is(hookErr, boom) {
			t.Errorf("Expected the failure hook to see the cause, got %v", hookErr)
		}
	})

	t.Run("failure hook declines", func(t *testing.T) {
		boom := errors.New("signer offline")
		client := Newx402Client(WithScheme("eip155:*", &mockSchemeNetworkClient{
			scheme: "exact",
			createPayload: func(ctx context.Context, requirements PaymentRequirements, extensions map[string]interface{}) (PartialPaymentPayload, error) {
				return PartialPaymentPayload{}, boom
			},
		})).
			OnPaymentCreationFailure(func(ctx PaymentCreationFailureContext) (*PaymentCreationFailureHookResult, error) {
				return nil, nil
			})

		if _, err := client.SelectAndPay(context.Background(), required, ""); !errors.Is(err, boom) {
			t.Errorf("Expected the original error, got %v", err)
		}
	})
}

type tagExtension struct {
	key   string
	calls int
	seen  interface{}
}

func (e *tagExtension) Key() string {
	return e.key
}

func (e *tagExtension) EnrichPaymentPayload(ctx context.Context, payload PaymentPayload, declaration interface{}) (PaymentPayload, error) {
	e.calls++
	e.seen = declaration
	payload.Extensions[e.key] = map[string]interface{}{"tagged": true}
	return payload, nil
}

func TestClientExtensions(t *testing.T) {
	ext := &tagExtension{key: "tag"}
	client := Newx402Client(
		WithScheme("eip155:*", &mockSchemeNetworkClient{scheme: "exact"}),
		WithExtension(ext),
	)

	t.Run("not declared", func(t *testing.T) {
		payload, err := client.SelectAndPay(context.Background(), envelope(offer("exact", "eip155:8453", "1")), "")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if ext.calls != 0 {
			t.Error("Expected the extension not to run")
		}
		if _, ok := payload.Extensions["tag"]; ok {
			t.Error("Did not expect the extension entry")
		}
	})

	t.Run("declared", func(t *testing.T) {
		required := envelope(offer("exact", "eip155:8453", "1"))
		required.Extensions = map[string]interface{}{"tag": "declared", "other": 1}

		payload, err := client.SelectAndPay(context.Background(), required, "")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if ext.calls != 1 || ext.seen != "declared" {
			t.Errorf("Expected one call with the declaration, got %d calls with %v", ext.calls, ext.seen)
		}
		if payload.Extensions["other"] != 1 {
			t.Error("Expected declared extensions to be echoed")
		}
		if required.Extensions["tag"] != "declared" {
			t.Error("Expected the envelope to be left untouched")
		}
	})
}

func TestClientNetworkPatternMatching(t *testing.T) {
	tests := []struct {
		name     string
		pattern  Network
		network  Network
		expected bool
	}{
		{"exact", "eip155:8453", "eip155:8453", true},
		{"exact mismatch", "eip155:8453", "eip155:1", false},
		{"namespace wildcard", "tron:*", "tron:3448148188", true},
		{"namespace wildcard, other namespace", "tron:*", "eip155:1", false},
		{"namespace wildcard, longer namespace", "tron:*", "tronx:1", false},
		{"global wildcard", "*", "solana:mainnet", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mechanism := &mockSchemeNetworkClient{scheme: "exact"}
			client := Newx402Client().Register(tt.pattern, mechanism)

			got := client.CanPay(context.Background(), []PaymentRequirements{offer("exact", tt.network, "1")})
			if got != tt.expected {
				t.Errorf("pattern %s, network %s: expected %v, got %v", tt.pattern, tt.network, tt.expected, got)
			}
		})
	}
}
