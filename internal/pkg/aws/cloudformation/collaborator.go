// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package cloudformation

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/cloudformation"
	"gopkg.in/yaml.v3"

	"github.com/aws/cfn-teleport/internal/pkg/cfntemplate"
	"github.com/aws/cfn-teleport/internal/pkg/teleport"
)

// refactorAPI is the slice of the SDK client a Collaborator needs for
// the Refactor path: submitting, polling, and executing a Stack
// Refactor, and listing the actions it would take.
type refactorAPI interface {
	CreateStackRefactor(*cloudformation.CreateStackRefactorInput) (*cloudformation.CreateStackRefactorOutput, error)
	DescribeStackRefactor(*cloudformation.DescribeStackRefactorInput) (*cloudformation.DescribeStackRefactorOutput, error)
	ExecuteStackRefactor(*cloudformation.ExecuteStackRefactorInput) (*cloudformation.ExecuteStackRefactorOutput, error)
	ListStackRefactorActions(*cloudformation.ListStackRefactorActionsInput) (*cloudformation.ListStackRefactorActionsOutput, error)
}

// collaboratorAPI is the full set of SDK calls the Collaborator
// implementation below makes, combining the Refactor path with the
// single-stack and changeset operations the Import path reuses from
// the rest of this package.
type collaboratorAPI interface {
	refactorAPI
	changeSetAPI

	DescribeStacks(*cloudformation.DescribeStacksInput) (*cloudformation.DescribeStacksOutput, error)
	DescribeStackResources(*cloudformation.DescribeStackResourcesInput) (*cloudformation.DescribeStackResourcesOutput, error)
	GetTemplate(*cloudformation.GetTemplateInput) (*cloudformation.GetTemplateOutput, error)
	GetTemplateSummary(*cloudformation.GetTemplateSummaryInput) (*cloudformation.GetTemplateSummaryOutput, error)
	ValidateTemplate(*cloudformation.ValidateTemplateInput) (*cloudformation.ValidateTemplateOutput, error)
	UpdateStack(*cloudformation.UpdateStackInput) (*cloudformation.UpdateStackOutput, error)
}

// Collaborator is the aws-sdk-go-backed implementation of
// teleport.Collaborator: the single capability boundary the planner
// and execution driver consume, satisfied here against a real
// CloudFormation endpoint through the raw SDK client, and satisfied in
// tests by an in-memory fake instead.
type Collaborator struct {
	client collaboratorAPI
}

var _ teleport.Collaborator = (*Collaborator)(nil)

// NewCollaborator creates a Collaborator backed by the given session.
func NewCollaborator(s *session.Session) *Collaborator {
	return &Collaborator{client: cloudformation.New(s)}
}

// ListStacks returns every stack in the account, named and with its
// current status, for the interactive source/target picker.
func (c *Collaborator) ListStacks() ([]teleport.StackSummary, error) {
	var nextToken *string
	var summaries []teleport.StackSummary
	for {
		out, err := c.client.DescribeStacks(&cloudformation.DescribeStacksInput{NextToken: nextToken})
		if err != nil {
			return nil, fmt.Errorf("list stacks: %w", err)
		}
		for _, s := range out.Stacks {
			summaries = append(summaries, teleport.StackSummary{
				Name:   aws.StringValue(s.StackName),
				Status: aws.StringValue(s.StackStatus),
			})
		}
		nextToken = out.NextToken
		if nextToken == nil {
			break
		}
	}
	return summaries, nil
}

// ListResources returns every resource CloudFormation currently
// tracks in stack, used both for the interactive resource picker and
// to look up the physical identifiers BuildImportPlan needs.
func (c *Collaborator) ListResources(stack string) ([]teleport.ResourceSummary, error) {
	out, err := c.client.DescribeStackResources(&cloudformation.DescribeStackResourcesInput{
		StackName: aws.String(stack),
	})
	if err != nil {
		if stackDoesNotExist(err) {
			return nil, &ErrStackNotFound{name: stack}
		}
		return nil, fmt.Errorf("list resources for stack %s: %w", stack, err)
	}
	summaries := make([]teleport.ResourceSummary, 0, len(out.StackResources))
	for _, r := range out.StackResources {
		summaries = append(summaries, teleport.ResourceSummary{
			LogicalID:  aws.StringValue(r.LogicalResourceId),
			Type:       aws.StringValue(r.ResourceType),
			PhysicalID: aws.StringValue(r.PhysicalResourceId),
		})
	}
	return summaries, nil
}

// GetTemplate returns the raw template body CloudFormation has on file
// for stack, in whichever format (JSON or YAML) the provider stored it.
func (c *Collaborator) GetTemplate(stack string) ([]byte, error) {
	out, err := c.client.GetTemplate(&cloudformation.GetTemplateInput{
		StackName: aws.String(stack),
	})
	if err != nil {
		if stackDoesNotExist(err) {
			return nil, &ErrStackNotFound{name: stack}
		}
		return nil, fmt.Errorf("get template for stack %s: %w", stack, err)
	}
	return []byte(aws.StringValue(out.TemplateBody)), nil
}

// ValidateTemplate asks the provider to validate body's syntax and
// capability requirements before a plan is submitted.
func (c *Collaborator) ValidateTemplate(body []byte) error {
	_, err := c.client.ValidateTemplate(&cloudformation.ValidateTemplateInput{
		TemplateBody: aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("validate template: %w", err)
	}
	return nil
}

// RefactorSubmit encodes plan's final stack templates and the
// resource-mapping set into a CreateStackRefactor request and returns
// the operation id the driver polls.
func (c *Collaborator) RefactorSubmit(plan *teleport.RefactorPlan) (string, error) {
	stackDefs := make([]*cloudformation.StackDefinition, 0, len(plan.StackDefinitions))
	for _, def := range plan.StackDefinitions {
		body, err := cfntemplate.Encode(def.Template, cfntemplate.FormatJSON)
		if err != nil {
			return "", fmt.Errorf("encode final template for stack %s: %w", def.StackName, err)
		}
		stackDefs = append(stackDefs, &cloudformation.StackDefinition{
			StackName:    aws.String(def.StackName),
			TemplateBody: aws.String(string(body)),
		})
	}

	mappings := make([]*cloudformation.ResourceMapping, 0, len(plan.ResourceMappings))
	for _, m := range plan.ResourceMappings {
		mappings = append(mappings, &cloudformation.ResourceMapping{
			Source: &cloudformation.ResourceLocation{
				StackName:         aws.String(m.SourceStack),
				LogicalResourceId: aws.String(m.OldID),
			},
			Destination: &cloudformation.ResourceLocation{
				StackName:         aws.String(m.TargetStack),
				LogicalResourceId: aws.String(m.NewID),
			},
		})
	}

	out, err := c.client.CreateStackRefactor(&cloudformation.CreateStackRefactorInput{
		StackDefinitions:    stackDefs,
		ResourceMappings:    mappings,
		EnableStackCreation: aws.Bool(false),
	})
	if err != nil {
		return "", fmt.Errorf("submit stack refactor: %w", err)
	}
	return aws.StringValue(out.StackRefactorId), nil
}

// RefactorPoll reports the submitted refactor's current status.
func (c *Collaborator) RefactorPoll(opID string) (teleport.RefactorStatus, error) {
	out, err := c.client.DescribeStackRefactor(&cloudformation.DescribeStackRefactorInput{
		StackRefactorId: aws.String(opID),
	})
	if err != nil {
		return "", fmt.Errorf("describe stack refactor %s: %w", opID, err)
	}
	return teleport.RefactorStatus(aws.StringValue(out.Status)), nil
}

// RefactorExecute executes a refactor that finished validation.
func (c *Collaborator) RefactorExecute(opID string) error {
	_, err := c.client.ExecuteStackRefactor(&cloudformation.ExecuteStackRefactorInput{
		StackRefactorId: aws.String(opID),
	})
	if err != nil {
		return fmt.Errorf("execute stack refactor %s: %w", opID, err)
	}
	return nil
}

// RefactorActions lists, as human-readable strings, the resource
// actions the provider computed for a submitted refactor -- the driver
// uses their count to label its progress before RefactorExecute.
func (c *Collaborator) RefactorActions(opID string) ([]string, error) {
	var nextToken *string
	var actions []string
	for {
		out, err := c.client.ListStackRefactorActions(&cloudformation.ListStackRefactorActionsInput{
			StackRefactorId: aws.String(opID),
			NextToken:       nextToken,
		})
		if err != nil {
			return nil, fmt.Errorf("list stack refactor actions for %s: %w", opID, err)
		}
		for _, a := range out.StackRefactorActions {
			actions = append(actions, fmt.Sprintf("%s %s (%s)",
				aws.StringValue(a.Action), aws.StringValue(a.Entity), aws.StringValue(a.Detection)))
		}
		nextToken = out.NextToken
		if nextToken == nil {
			break
		}
	}
	return actions, nil
}

// StackUpdate issues a plain UpdateStack call with template as the new
// body, used by the Import path's retain/remove/final phases.
func (c *Collaborator) StackUpdate(stack string, template *cfntemplate.Template) error {
	body, err := cfntemplate.Encode(template, cfntemplate.FormatJSON)
	if err != nil {
		return fmt.Errorf("encode template for stack %s update: %w", stack, err)
	}
	_, err = c.client.UpdateStack(&cloudformation.UpdateStackInput{
		StackName:    aws.String(stack),
		TemplateBody: aws.String(string(body)),
		Capabilities: aws.StringSlice([]string{
			cloudformation.CapabilityCapabilityIam,
			cloudformation.CapabilityCapabilityNamedIam,
			cloudformation.CapabilityCapabilityAutoExpand,
		}),
	})
	if err != nil {
		if isNoChangesAWSError(err) {
			return nil
		}
		return fmt.Errorf("update stack %s: %w", stack, err)
	}
	return nil
}

// StackStatus reports stack's current status for the Import path's
// update-phase polling loop.
func (c *Collaborator) StackStatus(stack string) (teleport.StackStatus, error) {
	out, err := c.client.DescribeStacks(&cloudformation.DescribeStacksInput{
		StackName: aws.String(stack),
	})
	if err != nil {
		if stackDoesNotExist(err) {
			return "", &ErrStackNotFound{name: stack}
		}
		return "", fmt.Errorf("describe stack %s: %w", stack, err)
	}
	if len(out.Stacks) == 0 {
		return "", &ErrStackNotFound{name: stack}
	}
	return teleport.StackStatus(aws.StringValue(out.Stacks[0].StackStatus)), nil
}

// ChangeSetCreateImport creates an IMPORT-type change set against
// stack, binding each moved resource's new logical id to the physical
// identifier the caller fetched from the source stack before planning.
func (c *Collaborator) ChangeSetCreateImport(stack string, template *cfntemplate.Template, resourceIdentifiers map[string]string) (string, error) {
	body, err := cfntemplate.Encode(template, cfntemplate.FormatJSON)
	if err != nil {
		return "", fmt.Errorf("encode template for import changeset on stack %s: %w", stack, err)
	}
	cs, err := newCreateChangeSet(c.client, stack)
	if err != nil {
		return "", err
	}

	identifierKeys, err := c.resourceIdentifierKeys(body)
	if err != nil {
		return "", err
	}
	resourcesToImport := make([]*cloudformation.ResourceToImport, 0, len(resourceIdentifiers))
	for logicalID, physicalID := range resourceIdentifiers {
		res := template.Resource(logicalID)
		if res == nil {
			continue
		}
		resType := resourceType(res)
		key, ok := identifierKeys[resType]
		if !ok {
			return "", fmt.Errorf("resource type %s does not support import", resType)
		}
		resourcesToImport = append(resourcesToImport, &cloudformation.ResourceToImport{
			LogicalResourceId: aws.String(logicalID),
			ResourceType:      aws.String(resType),
			ResourceIdentifier: map[string]*string{
				key: aws.String(physicalID),
			},
		})
	}

	out, err := cs.client.CreateChangeSet(&cloudformation.CreateChangeSetInput{
		ChangeSetName:     aws.String(cs.name),
		StackName:         aws.String(cs.stackName),
		ChangeSetType:     aws.String(cloudformation.ChangeSetTypeImport),
		TemplateBody:      aws.String(string(body)),
		ResourcesToImport: resourcesToImport,
		Capabilities: aws.StringSlice([]string{
			cloudformation.CapabilityCapabilityIam,
			cloudformation.CapabilityCapabilityNamedIam,
			cloudformation.CapabilityCapabilityAutoExpand,
		}),
	})
	if err != nil {
		// It's possible the import changeset has nothing to do (every
		// moved resource already matches the target's desired state).
		// Describe it to confirm, then clean it up -- there's a limit
		// on the number of failed change sets a stack can accumulate.
		descr, descrErr := cs.describe()
		if descrErr != nil {
			return "", fmt.Errorf("create %s: %v: check whether it was empty: %w", cs, err, descrErr)
		}
		if len(descr.Changes) == 0 && strings.Contains(descr.StatusReason, "didn't contain changes") {
			_ = cs.delete()
			return "", &ErrChangeSetEmpty{cs: cs}
		}
		return "", fmt.Errorf("create %s: %w", cs, err)
	}
	return aws.StringValue(out.Id), nil
}

// ChangeSetDescribe reports csID's creation status. Execution progress
// is not visible here: once an import change set executes, the target
// stack's own status carries the IMPORT_* states.
func (c *Collaborator) ChangeSetDescribe(csID string) (teleport.ChangeSetStatus, error) {
	out, err := c.client.DescribeChangeSet(&cloudformation.DescribeChangeSetInput{
		ChangeSetName: aws.String(csID),
	})
	if err != nil {
		return "", fmt.Errorf("describe changeset %s: %w", csID, err)
	}
	return teleport.ChangeSetStatus(aws.StringValue(out.Status)), nil
}

// ChangeSetExecute executes csID's import changeset.
func (c *Collaborator) ChangeSetExecute(csID string) error {
	_, err := c.client.ExecuteChangeSet(&cloudformation.ExecuteChangeSetInput{
		ChangeSetName: aws.String(csID),
	})
	if err != nil {
		return fmt.Errorf("execute changeset %s: %w", csID, err)
	}
	return nil
}

// resourceIdentifierKeys asks the provider which identifier property
// each resource type in body is imported by (e.g. "BucketName" for an
// S3 bucket) and returns the first accepted key per type.
func (c *Collaborator) resourceIdentifierKeys(body []byte) (map[string]string, error) {
	out, err := c.client.GetTemplateSummary(&cloudformation.GetTemplateSummaryInput{
		TemplateBody: aws.String(string(body)),
	})
	if err != nil {
		return nil, fmt.Errorf("get template summary for import identifiers: %w", err)
	}
	keys := make(map[string]string, len(out.ResourceIdentifierSummaries))
	for _, s := range out.ResourceIdentifierSummaries {
		if len(s.ResourceIdentifiers) == 0 {
			continue
		}
		keys[aws.StringValue(s.ResourceType)] = aws.StringValue(s.ResourceIdentifiers[0])
	}
	return keys, nil
}

// resourceType returns the Type field of a parsed resource node, used
// to fill in ResourceToImport.ResourceType since the template on disk
// already names it.
func resourceType(res *yaml.Node) string {
	if res == nil || res.Kind != yaml.MappingNode {
		return ""
	}
	for i := 0; i+1 < len(res.Content); i += 2 {
		if res.Content[i].Value == "Type" {
			return res.Content[i+1].Value
		}
	}
	return ""
}

func isNoChangesAWSError(err error) bool {
	aerr, ok := err.(awserr.Error)
	if !ok {
		return false
	}
	return aerr.Code() == "ValidationError" &&
		(strings.Contains(aerr.Message(), "didn't contain changes") || strings.Contains(aerr.Message(), "No updates are to be performed"))
}
