package x402

import (
	"context"
	"log/slog"
	"math/big"
	"sort"
	"strings"
)

type balanceSigner struct {
	pattern Network
	checker BalanceChecker
}

// SufficientBalancePolicy drops offers the payer cannot afford.
//
// Each offer is checked against the first signer whose pattern matches its network
// ("*" matches any network). By default the policy fails open: offers on networks
// without a signer, or whose balance query fails, are kept and left to mechanism
// selection. WithStrict makes both cases drop the offer instead.
type SufficientBalancePolicy struct {
	signers []balanceSigner
	strict  bool
	logger  *slog.Logger
}

// NewSufficientBalancePolicy creates a policy with no signers; without signers every offer survives
func NewSufficientBalancePolicy() *SufficientBalancePolicy {
	return &SufficientBalancePolicy{logger: slog.New(slog.DiscardHandler)}
}

// WithSigner adds a (pattern, signer) pair. Earlier pairs take precedence.
func (p *SufficientBalancePolicy) WithSigner(pattern Network, checker BalanceChecker) *SufficientBalancePolicy {
	p.signers = append(p.signers, balanceSigner{pattern: pattern, checker: checker})
	return p
}

// WithStrict drops offers that cannot be checked
func (p *SufficientBalancePolicy) WithStrict() *SufficientBalancePolicy {
	p.strict = true
	return p
}

// WithLogger sets the policy logger
func (p *SufficientBalancePolicy) WithLogger(logger *slog.Logger) *SufficientBalancePolicy {
	if logger != nil {
		p.logger = logger
	}
	return p
}

func (p *SufficientBalancePolicy) checkerFor(network Network) BalanceChecker {
	for _, s := range p.signers {
		if network.Match(s.pattern) {
			return s.checker
		}
	}
	return nil
}

// Apply keeps every offer whose balance covers amount + fee
func (p *SufficientBalancePolicy) Apply(ctx context.Context, requirements []PaymentRequirements) ([]PaymentRequirements, error) {
	affordable := make([]PaymentRequirements, 0, len(requirements))
	logger := p.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	for _, req := range requirements {
		checker := p.checkerFor(req.Network)
		if checker == nil {
			if !p.strict {
				affordable = append(affordable, req)
			}
			continue
		}

		total, err := RequiredTotal(req)
		if err != nil {
			logger.Warn("unparseable payment amount", "network", req.Network, "amount", req.Amount, "error", err)
			if !p.strict {
				affordable = append(affordable, req)
			}
			continue
		}

		balance, err := checker.CheckBalance(ctx, req.Asset, req.Network)
		if err != nil {
			logger.Warn("balance query failed", "network", req.Network, "asset", req.Asset, "error", err)
			if !p.strict {
				affordable = append(affordable, req)
			}
			continue
		}

		if balance.Cmp(total) >= 0 {
			affordable = append(affordable, req)
		} else {
			logger.Info("insufficient balance, dropping offer",
				"network", req.Network, "asset", req.Asset, "balance", balance.String(), "required", total.String())
		}
	}

	return affordable, nil
}

// MaxAmountPolicy drops offers whose amount + fee exceeds limit.
// Assets, when given, restrict the check to those assets (hex compared case-insensitively).
func MaxAmountPolicy(limit *big.Int, assets ...string) PaymentPolicy {
	return PaymentPolicyFunc(func(ctx context.Context, requirements []PaymentRequirements) ([]PaymentRequirements, error) {
		out := make([]PaymentRequirements, 0, len(requirements))
		for _, req := range requirements {
			if len(assets) > 0 && !containsFold(assets, req.Asset) {
				out = append(out, req)
				continue
			}
			total, err := RequiredTotal(req)
			if err != nil || total.Cmp(limit) > 0 {
				continue
			}
			out = append(out, req)
		}
		return out, nil
	})
}

// PreferNetworksPolicy moves offers on the given network patterns to the front,
// in pattern order, keeping the relative order of everything else
func PreferNetworksPolicy(patterns ...Network) PaymentPolicy {
	rank := func(n Network) int {
		for i, p := range patterns {
			if n.Match(p) {
				return i
			}
		}
		return len(patterns)
	}

	return PaymentPolicyFunc(func(ctx context.Context, requirements []PaymentRequirements) ([]PaymentRequirements, error) {
		out := append([]PaymentRequirements(nil), requirements...)
		sort.SliceStable(out, func(i, j int) bool {
			return rank(out[i].Network) < rank(out[j].Network)
		})
		return out, nil
	})
}

func containsFold(values []string, v string) bool {
	for _, candidate := range values {
		if strings.EqualFold(candidate, v) {
			return true
		}
	}
	return false
}
