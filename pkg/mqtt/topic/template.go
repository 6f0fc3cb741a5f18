// Package topic builds cloud-specific MQTT topic strings from the
// placeholder templates each peer cloud configures (spec.md §4.2).
//
// It generalizes the teacher's TopicBuilder (which hard-coded one
// method per verb) into a data-driven substitution over a fixed
// placeholder vocabulary, since each peer cloud defines its own topic
// layout via configuration rather than Go methods.
package topic

import "strings"

// Recognized placeholder tokens. Per-cloud configuration embeds these
// literally in a topic template string; Render substitutes them.
const (
	PlaceholderEndpoint     = "__EPNAME__"
	PlaceholderDeviceType   = "__DEVICE_TYPE__"
	PlaceholderCommandType  = "__COMMAND_TYPE__"
	PlaceholderProjectID    = "__PROJECT_ID__"
	PlaceholderCloudRegion  = "__CLOUD_REGION__"
	PlaceholderRegistryName = "__REGISTRY_NAME__"
	PlaceholderOrgID        = "__ORG_ID__"
	PlaceholderOrgKey       = "__ORG_KEY__"
	PlaceholderEventType    = "__EVENT_TYPE__"
)

// Standard MQTT wildcard definitions.
const (
	Wildcard      = "+"
	MultiWildcard = "#"
)

// Vars is the substitution set used to render one topic instance from a
// template. Not every field is meaningful for every cloud; unused fields
// are left as the empty string and their placeholder (if absent from the
// template) is simply never substituted.
type Vars struct {
	Endpoint     string
	DeviceType   string
	CommandType  string
	ProjectID    string
	CloudRegion  string
	RegistryName string
	OrgID        string
	OrgKey       string
	EventType    string
}

func (v Vars) replacer() *strings.Replacer {
	return strings.NewReplacer(
		PlaceholderEndpoint, v.Endpoint,
		PlaceholderDeviceType, v.DeviceType,
		PlaceholderCommandType, v.CommandType,
		PlaceholderProjectID, v.ProjectID,
		PlaceholderCloudRegion, v.CloudRegion,
		PlaceholderRegistryName, v.RegistryName,
		PlaceholderOrgID, v.OrgID,
		PlaceholderOrgKey, v.OrgKey,
		PlaceholderEventType, v.EventType,
	)
}

// Render substitutes every recognized placeholder in template with the
// corresponding field of vars, leaving any unrecognized token untouched.
func Render(template string, vars Vars) string {
	return vars.replacer().Replace(template)
}

// RenderLegacy renders template like Render and lower-cases the whole
// result. Watson's legacy bridge mode publishes/subscribes on lower-case
// verb segments while production Watson uses upper-case (spec.md §9 Open
// Questions); every other segment, including the endpoint name and
// device type, is lower-cased too.
func RenderLegacy(template string, vars Vars) string {
	return strings.ToLower(Render(template, vars))
}

// Matches reports whether an MQTT topic filter (possibly containing +
// and # wildcards) matches a concrete topic string.
func Matches(filter, t string) bool {
	if filter == t {
		return true
	}
	if !strings.Contains(filter, Wildcard) && !strings.Contains(filter, MultiWildcard) {
		return false
	}

	filterParts := strings.Split(filter, "/")
	topicParts := strings.Split(t, "/")

	for i, part := range filterParts {
		if part == MultiWildcard {
			return true
		}
		if i >= len(topicParts) {
			return false
		}
		if part != Wildcard && part != topicParts[i] {
			return false
		}
	}
	return len(filterParts) == len(topicParts)
}

// Segments splits a topic into its '/'-delimited parts, the positional
// decoding fallback spec.md §4.2 describes for getEndpointNameFromTopic /
// getCoAPVerbFromTopic / getCoAPURIFromTopic.
func Segments(t string) []string {
	return strings.Split(t, "/")
}
