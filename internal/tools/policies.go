package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/oktamcp/oktamcp/internal/tool"
)

func policyTools(d Deps) []tool.Tool {
	return []tool.Tool{
		listPolicyRulesTool(d),
		getPolicyRuleTool(d),
		listNetworkZonesTool(d),
	}
}

type policyIDArgs struct {
	PolicyID string `json:"policy_id"`
}

func listPolicyRulesTool(d Deps) tool.Tool {
	return tool.Func{
		ToolName: "list_okta_policy_rules",
		ToolDescription: "List all rules of a specific Okta policy (sign-on, password, MFA " +
			"enrollment, etc.), including rule conditions and actions.",
		ToolSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "policy_id": {"type": "string", "description": "The ID of the policy to list rules for"}
  },
  "required": ["policy_id"]
}`),
		Run: func(ctx context.Context, args json.RawMessage) (any, error) {
			var in policyIDArgs
			if err := decodeArgs(args, &in); err != nil {
				return nil, err
			}
			policyID := strings.TrimSpace(in.PolicyID)
			if policyID == "" {
				return nil, fmt.Errorf("%w: policy_id cannot be empty", tool.ErrInvalidArguments)
			}

			n := d.API.ListPolicyRules(ctx, policyID)
			if n.Err != nil {
				return errorPayload("list_okta_policy_rules", n.Err), nil
			}
			return map[string]any{
				"rules":       itemDicts(n.Items),
				"policy_id":   policyID,
				"total_rules": len(n.Items),
			}, nil
		},
	}
}

type policyRuleArgs struct {
	PolicyID string `json:"policy_id"`
	RuleID   string `json:"rule_id"`
}

func getPolicyRuleTool(d Deps) tool.Tool {
	return tool.Func{
		ToolName:        "get_okta_policy_rule",
		ToolDescription: "Get detailed information about a single rule of an Okta policy.",
		ToolSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "policy_id": {"type": "string", "description": "The ID of the policy the rule belongs to"},
    "rule_id": {"type": "string", "description": "The ID of the rule to retrieve"}
  },
  "required": ["policy_id", "rule_id"]
}`),
		Run: func(ctx context.Context, args json.RawMessage) (any, error) {
			var in policyRuleArgs
			if err := decodeArgs(args, &in); err != nil {
				return nil, err
			}
			policyID := strings.TrimSpace(in.PolicyID)
			ruleID := strings.TrimSpace(in.RuleID)
			if policyID == "" || ruleID == "" {
				return nil, fmt.Errorf("%w: policy_id and rule_id are required", tool.ErrInvalidArguments)
			}

			rule, err := d.API.GetPolicyRule(ctx, policyID, ruleID)
			if err != nil {
				return errorPayload("get_okta_policy_rule", err), nil
			}
			return map[string]any{
				"rule":      map[string]any(rule),
				"policy_id": policyID,
			}, nil
		},
	}
}

type networkZonesArgs struct {
	FilterType string `json:"filter_type"`
}

func listNetworkZonesTool(d Deps) tool.Tool {
	return tool.Func{
		ToolName: "list_okta_network_zones",
		ToolDescription: "List network zones defined in the Okta org, optionally filtered by " +
			"type or status (e.g. status eq \"ACTIVE\").",
		ToolSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "filter_type": {"type": "string", "description": "Filter expression, e.g. status eq \"ACTIVE\""}
  }
}`),
		Run: func(ctx context.Context, args json.RawMessage) (any, error) {
			var in networkZonesArgs
			if err := decodeArgs(args, &in); err != nil {
				return nil, err
			}
			n := d.API.ListNetworkZones(ctx, in.FilterType)
			if n.Err != nil {
				return errorPayload("list_okta_network_zones", n.Err), nil
			}
			return map[string]any{
				"zones":       itemDicts(n.Items),
				"total_zones": len(n.Items),
			}, nil
		},
	}
}
