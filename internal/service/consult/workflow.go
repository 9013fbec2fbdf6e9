package consult

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/zhouzirui/consultant/internal/model/mode"
)

// Workflow names a canned consultation that formats typed inputs into a
// structured prompt before running a normal turn.
type Workflow string

const (
	WorkflowStrategy Workflow = "strategy"
	WorkflowSocial   Workflow = "social"
	WorkflowFunnel   Workflow = "funnel"
	WorkflowSEO      Workflow = "seo"
	WorkflowBudget   Workflow = "budget"
)

// Workflows lists every workflow in display order.
func Workflows() []Workflow {
	return []Workflow{WorkflowStrategy, WorkflowSocial, WorkflowFunnel, WorkflowSEO, WorkflowBudget}
}

// Mode returns the template mode a workflow runs under.
func (w Workflow) Mode() (mode.Mode, error) {
	switch w {
	case WorkflowStrategy, WorkflowFunnel:
		return mode.Strategy, nil
	case WorkflowSocial:
		return mode.SocialMedia, nil
	case WorkflowSEO:
		return mode.SEO, nil
	case WorkflowBudget:
		return mode.Budget, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownWorkflow, string(w))
	}
}

// Fields lists the input keys a workflow reads.
func (w Workflow) Fields() []string {
	switch w {
	case WorkflowStrategy, WorkflowFunnel:
		return []string{"description"}
	case WorkflowSocial:
		return []string{"industry", "audience", "budget"}
	case WorkflowSEO:
		return []string{"website"}
	case WorkflowBudget:
		return []string{"total_budget", "goals", "industry"}
	default:
		return nil
	}
}

// StrategyBrief describes a marketing strategy to critique.
type StrategyBrief struct {
	Description string
}

// SocialBrief holds the inputs of a social media plan.
type SocialBrief struct {
	Industry string
	Audience string
	Budget   string
}

// FunnelBrief describes a conversion funnel.
type FunnelBrief struct {
	Description string
}

// SEOBrief describes the website to audit.
type SEOBrief struct {
	WebsiteInfo string
}

// BudgetBrief holds the inputs of a budget allocation plan.
type BudgetBrief struct {
	TotalBudget string
	Goals       string
	Industry    string
}

func (b StrategyBrief) Prompt() string {
	return fmt.Sprintf(`Please analyze the following marketing strategy and provide:
1. Strengths
2. Weaknesses
3. Opportunities for improvement
4. Potential risks
5. ROI estimation
6. 90-day action plan

Strategy Description:
%s`, strings.TrimSpace(b.Description))
}

func (b SocialBrief) Prompt() string {
	return fmt.Sprintf(`Create a comprehensive social media marketing plan with:
1. Platform selection and justification
2. Content calendar overview (30 days)
3. Posting frequency and best times
4. Content types and themes
5. Engagement strategies
6. Analytics metrics to track
7. Budget allocation per platform

Industry: %s
Target Audience: %s
Monthly Budget: %s`, strings.TrimSpace(b.Industry), strings.TrimSpace(b.Audience), strings.TrimSpace(b.Budget))
}

func (b FunnelBrief) Prompt() string {
	return fmt.Sprintf(`Analyze this conversion funnel and provide optimization recommendations:

Current Funnel:
%s

Please provide:
1. Identified bottlenecks
2. Conversion rate improvement strategies
3. A/B testing recommendations
4. Landing page optimization tips
5. Call-to-action improvements
6. Implementation priority and timeline`, strings.TrimSpace(b.Description))
}

func (b SEOBrief) Prompt() string {
	return fmt.Sprintf(`Based on this website information, provide comprehensive SEO recommendations:

Website Info:
%s

Include:
1. On-page SEO improvements
2. Technical SEO fixes
3. Backlink strategy
4. Keyword research focus areas
5. Content optimization priorities
6. Local SEO recommendations (if applicable)
7. Competitive analysis insights
8. Implementation roadmap with timeline and priority`, strings.TrimSpace(b.WebsiteInfo))
}

func (b BudgetBrief) Prompt() string {
	return fmt.Sprintf(`Create a detailed budget allocation plan with:

Total Budget: %s
Business Goals: %s
Industry: %s

Provide:
1. Recommended channel allocation (percentages and amounts)
2. Justification for each allocation
3. Expected ROI by channel
4. Month-by-month breakdown for first 90 days
5. Quick wins vs. long-term investments
6. Contingency recommendations
7. Key metrics to monitor per channel`, strings.TrimSpace(b.TotalBudget), strings.TrimSpace(b.Goals), strings.TrimSpace(b.Industry))
}

// CritiqueStrategy reviews a marketing strategy.
func (e *Engine) CritiqueStrategy(ctx context.Context, sessionID string, brief StrategyBrief, opts ...TurnOption) (string, error) {
	return e.Turn(ctx, sessionID, mode.Strategy, brief.Prompt(), opts...)
}

// PlanSocialCampaign drafts a social media plan.
func (e *Engine) PlanSocialCampaign(ctx context.Context, sessionID string, brief SocialBrief, opts ...TurnOption) (string, error) {
	return e.Turn(ctx, sessionID, mode.SocialMedia, brief.Prompt(), opts...)
}

// OptimizeFunnel recommends conversion funnel improvements.
func (e *Engine) OptimizeFunnel(ctx context.Context, sessionID string, brief FunnelBrief, opts ...TurnOption) (string, error) {
	return e.Turn(ctx, sessionID, mode.Strategy, brief.Prompt(), opts...)
}

// AuditSEO produces SEO recommendations for a website.
func (e *Engine) AuditSEO(ctx context.Context, sessionID string, brief SEOBrief, opts ...TurnOption) (string, error) {
	return e.Turn(ctx, sessionID, mode.SEO, brief.Prompt(), opts...)
}

// AllocateBudget splits a budget across channels.
func (e *Engine) AllocateBudget(ctx context.Context, sessionID string, brief BudgetBrief, opts ...TurnOption) (string, error) {
	return e.Turn(ctx, sessionID, mode.Budget, brief.Prompt(), opts...)
}

// FormatWorkflow renders the prompt for a workflow from untyped fields.
// Missing fields are rendered empty.
func FormatWorkflow(w Workflow, fields map[string]string) (string, error) {
	switch w {
	case WorkflowStrategy:
		return StrategyBrief{Description: fields["description"]}.Prompt(), nil
	case WorkflowSocial:
		return SocialBrief{Industry: fields["industry"], Audience: fields["audience"], Budget: fields["budget"]}.Prompt(), nil
	case WorkflowFunnel:
		return FunnelBrief{Description: fields["description"]}.Prompt(), nil
	case WorkflowSEO:
		return SEOBrief{WebsiteInfo: fields["website"]}.Prompt(), nil
	case WorkflowBudget:
		return BudgetBrief{TotalBudget: fields["total_budget"], Goals: fields["goals"], Industry: fields["industry"]}.Prompt(), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownWorkflow, string(w))
	}
}

// RunWorkflow is the untyped entry point used by shells.
func (e *Engine) RunWorkflow(ctx context.Context, sessionID string, w Workflow, fields map[string]string, opts ...TurnOption) (string, error) {
	m, err := w.Mode()
	if err != nil {
		return "", err
	}
	text, err := FormatWorkflow(w, fields)
	if err != nil {
		return "", err
	}
	return e.Turn(ctx, sessionID, m, text, opts...)
}

// ParseWorkflow accepts a workflow name case-insensitively.
func ParseWorkflow(raw string) (Workflow, error) {
	w := Workflow(strings.ToLower(strings.TrimSpace(raw)))
	if _, err := w.Mode(); err != nil {
		known := make([]string, 0, len(Workflows()))
		for _, k := range Workflows() {
			known = append(known, string(k))
		}
		sort.Strings(known)
		return "", fmt.Errorf("%w: %q (known: %s)", ErrUnknownWorkflow, raw, strings.Join(known, ", "))
	}
	return w, nil
}
