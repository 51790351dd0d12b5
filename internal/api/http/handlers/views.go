package handlers

import (
	"github.com/spec-kit/grievance-service/internal/api/dto"
	"github.com/spec-kit/grievance-service/internal/domain"
)

func complaintResponse(c *domain.Complaint) dto.ComplaintResponse {
	tags := c.Tags
	if tags == nil {
		tags = []string{}
	}
	return dto.ComplaintResponse{
		ID:              c.ID,
		Key:             c.Key,
		Title:           c.Title,
		Description:     c.Description,
		Category:        c.Category,
		Priority:        c.Priority,
		Status:          c.Status,
		SubmitterID:     c.SubmitterID,
		SubmitterType:   c.SubmitterType,
		AssigneeID:      c.AssigneeID,
		Tags:            tags,
		EscalationLevel: c.EscalationLevel,
		ReopenCount:     c.ReopenCount,
		DueAt:           c.DueAt,
		ResolutionDueAt: c.ResolutionDueAt,
		RespondedAt:     c.RespondedAt,
		ResolvedAt:      c.ResolvedAt,
		ClosedAt:        c.ClosedAt,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
		Version:         c.Version,
	}
}

func complaintList(items []domain.Complaint) []dto.ComplaintResponse {
	out := make([]dto.ComplaintResponse, 0, len(items))
	for i := range items {
		out = append(out, complaintResponse(&items[i]))
	}
	return out
}

func commentResponse(c *domain.ComplaintComment) dto.CommentResponse {
	return dto.CommentResponse{
		ID:        c.ID,
		TicketID:  c.TicketID,
		AuthorID:  c.AuthorID,
		Body:      c.Body,
		Internal:  c.Internal,
		CreatedAt: c.CreatedAt,
	}
}

func statusChangeResponse(sc *domain.StatusChange) dto.StatusChangeResponse {
	return dto.StatusChangeResponse{
		ID:         sc.ID,
		Kind:       sc.Kind,
		FromStatus: sc.FromStatus,
		ToStatus:   sc.ToStatus,
		ActorID:    sc.ActorID,
		ActorRole:  sc.ActorRole,
		Note:       sc.Note,
		Metadata:   sc.Metadata,
		CreatedAt:  sc.CreatedAt,
	}
}

func historyResponse(entries []domain.HistoryEntry) []dto.HistoryEntryResponse {
	out := make([]dto.HistoryEntryResponse, 0, len(entries))
	for _, e := range entries {
		item := dto.HistoryEntryResponse{At: e.At}
		switch {
		case e.StatusChange != nil:
			sc := statusChangeResponse(e.StatusChange)
			item.Type = "status_change"
			item.StatusChange = &sc
		case e.Comment != nil:
			cm := commentResponse(e.Comment)
			item.Type = "comment"
			item.Comment = &cm
		}
		out = append(out, item)
	}
	return out
}

func resolutionResponse(r *domain.Resolution) dto.ResolutionResponse {
	return dto.ResolutionResponse{
		ID:              r.ID,
		TicketID:        r.TicketID,
		ResolvedBy:      r.ResolvedBy,
		Summary:         r.Summary,
		ActionsTaken:    r.ActionsTaken,
		SubmittedAt:     r.SubmittedAt,
		Verification:    r.Verification,
		VerifiedBy:      r.VerifiedBy,
		VerifiedAt:      r.VerifiedAt,
		RejectionReason: r.RejectionReason,
		Active:          r.Active,
	}
}

func breachResponse(b *domain.SLABreach) dto.BreachResponse {
	return dto.BreachResponse{
		ID:          b.ID,
		TicketID:    b.TicketID,
		BreachType:  b.BreachType,
		DetectedAt:  b.DetectedAt,
		DueAt:       b.DueAt,
		Status:      b.Status,
		Note:        b.Note,
		EscalatedAt: b.EscalatedAt,
		ClosedBy:    b.ClosedBy,
		ClosedAt:    b.ClosedAt,
	}
}

func breachList(items []domain.SLABreach) []dto.BreachResponse {
	out := make([]dto.BreachResponse, 0, len(items))
	for i := range items {
		out = append(out, breachResponse(&items[i]))
	}
	return out
}

func surveyView(s *domain.SatisfactionSurvey) dto.SurveyView {
	return dto.SurveyView{
		ID:             s.ID,
		TicketID:       s.TicketID,
		RecipientID:    s.RecipientID,
		Status:         s.Status,
		SentAt:         s.SentAt,
		ReminderCount:  s.ReminderCount,
		LastReminderAt: s.LastReminderAt,
	}
}

func surveyAnswerView(r *domain.SurveyResponse) dto.SurveyAnswerView {
	return dto.SurveyAnswerView{
		SurveyID:     r.SurveyID,
		RespondentID: r.RespondentID,
		Rating:       r.Rating,
		Comment:      r.Comment,
		SubmittedAt:  r.SubmittedAt,
	}
}

func slaConfigResponse(c *domain.SLAConfig) dto.SLAConfigResponse {
	return dto.SLAConfigResponse{
		ID:                c.ID,
		Category:          c.Category,
		Priority:          c.Priority,
		ResponseMinutes:   c.ResponseMinutes,
		ResolutionMinutes: c.ResolutionMinutes,
		Enabled:           c.Enabled,
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
	}
}

func ruleResponse(r *domain.AssignmentRule) dto.RuleResponse {
	return dto.RuleResponse{
		ID:            r.ID,
		Name:          r.Name,
		PriorityOrder: r.PriorityOrder,
		Conditions: dto.RuleConditionsPayload{
			Categories: r.Conditions.Categories,
			Priorities: r.Conditions.Priorities,
			Tags:       r.Conditions.Tags,
		},
		AssigneeID: r.AssigneeID,
		Enabled:    r.Enabled,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

func ruleList(items []domain.AssignmentRule) []dto.RuleResponse {
	out := make([]dto.RuleResponse, 0, len(items))
	for i := range items {
		out = append(out, ruleResponse(&items[i]))
	}
	return out
}

func feedbackView(f *domain.AnonymousFeedback) dto.FeedbackView {
	return dto.FeedbackView{
		ID:          f.ID,
		Category:    f.Category,
		Body:        f.Body,
		Status:      f.Status,
		Response:    f.Response,
		RespondedAt: f.RespondedAt,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}
