package notification

import (
	"fmt"

	"github.com/edbridge/onboarding-engine/internal/domain/shared"
)

// DefaultRegistry returns the registry with the stock renderers for every
// workflow event kind bound.
func DefaultRegistry() *Registry {
	registry := NewRegistry()
	registry.Register(shared.EventWorkflowStarted, RendererFunc(renderStarted))
	registry.Register(shared.EventStageAdvanced, RendererFunc(renderStageAdvanced))
	registry.Register(shared.EventWorkflowCancelled, RendererFunc(renderCancelled))
	registry.Register(shared.EventWorkflowCompleted, RendererFunc(renderCompleted))
	return registry
}

func primaryName(in Inputs) string {
	if len(in.Recipients) > 0 && in.Recipients[0].Name != "" {
		return in.Recipients[0].Name
	}
	return "there"
}

// renderStarted covers both families: an invitation for the registration
// family, an assessment request for the post-assessment family.
func renderStarted(in Inputs) (Content, error) {
	if in.Family == "post_assessment" {
		return Content{
			Subject: "Post-assessment requested",
			Body: fmt.Sprintf(
				"Hello %s,\n\nA post-program behavioral assessment has been requested for your student. "+
					"Please submit all 35 answers through your dashboard.",
				primaryName(in)),
		}, nil
	}
	return Content{
		Subject: "You're invited to register",
		Body: fmt.Sprintf(
			"Hello %s,\n\nYou have been invited to register your student. "+
				"Follow the link in this message to complete the registration.",
			primaryName(in)),
	}, nil
}

func renderStageAdvanced(in Inputs) (Content, error) {
	switch in.Stage {
	case "registration_received":
		return Content{
			Subject: "Registration received",
			Body: fmt.Sprintf(
				"Hello %s,\n\nThe registration was received and the student record has been created.",
				primaryName(in)),
		}, nil
	case "teacher_info_requested":
		return Content{
			Subject: "Teacher information requested",
			Body: fmt.Sprintf(
				"Hello %s,\n\nPlease provide the classroom information and the pre-program "+
					"behavioral assessment (all 35 questions) for your new student.",
				primaryName(in)),
		}, nil
	case "teacher_info_received":
		return Content{
			Subject: "Teacher information received",
			Body: fmt.Sprintf(
				"Hello %s,\n\nThank you - the teacher information and pre-assessment were received. "+
					"Onboarding is complete.",
				primaryName(in)),
		}, nil
	case "post_assessment_received":
		return Content{
			Subject: "Post-assessment received",
			Body: fmt.Sprintf(
				"Hello %s,\n\nThank you - the post-program assessment was received.",
				primaryName(in)),
		}, nil
	default:
		return Content{
			Subject: "Onboarding update",
			Body: fmt.Sprintf("Hello %s,\n\nYour onboarding workflow moved to stage %q.",
				primaryName(in), in.Stage),
		}, nil
	}
}

func renderCancelled(in Inputs) (Content, error) {
	return Content{
		Subject: "Onboarding cancelled",
		Body: fmt.Sprintf(
			"Hello %s,\n\nThe onboarding workflow was cancelled. "+
				"If this was unexpected, a new invitation can be issued.",
			primaryName(in)),
	}, nil
}

func renderCompleted(in Inputs) (Content, error) {
	return Content{
		Subject: "Onboarding complete",
		Body: fmt.Sprintf(
			"Hello %s,\n\nAll onboarding steps are complete. Welcome aboard!",
			primaryName(in)),
	}, nil
}
