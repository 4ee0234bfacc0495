package httpapi

import (
	"time"

	"NewsTranslator/internal/domain"
)

type statusResponse struct {
	IsRunning     bool             `json:"is_running"`
	JobActive     bool             `json:"job_active"`
	LastRunAt     *time.Time       `json:"last_run_at"`
	LastRunStatus domain.RunStatus `json:"last_run_status"`
	RunCount      int              `json:"run_count"`
	NextRunAt     time.Time        `json:"next_run_at"`
	CurrentTime   time.Time        `json:"current_time"`
	Timezone      string           `json:"timezone"`
	TriggerHours  []int            `json:"trigger_hours"`
	Provider      string           `json:"provider"`
	ArticleCount  *int             `json:"article_count,omitempty"`
	LastOutcome   *outcomeResponse `json:"last_outcome,omitempty"`
}

type outcomeResponse struct {
	RunID           string           `json:"run_id"`
	Trigger         domain.Trigger   `json:"trigger"`
	Status          domain.RunStatus `json:"status"`
	StartedAt       time.Time        `json:"started_at"`
	FinishedAt      time.Time        `json:"finished_at"`
	DurationSeconds float64          `json:"duration_seconds"`
	ItemsFetched    int              `json:"items_fetched"`
	ItemsTranslated int              `json:"items_translated"`
	ItemsFailed     int              `json:"items_failed"`
	ItemsSkipped    int              `json:"items_skipped"`
	ItemsStored     int              `json:"items_stored"`
	ItemsPurged     int              `json:"items_purged"`
	Error           string           `json:"error,omitempty"`
}

type articleResponse struct {
	ID                string                   `json:"id"`
	Link              string                   `json:"link"`
	Feed              string                   `json:"feed"`
	PublishedAt       time.Time                `json:"published_at"`
	Title             string                   `json:"title"`
	Body              string                   `json:"body"`
	TitleOriginal     string                   `json:"title_original"`
	BodyOriginal      string                   `json:"body_original"`
	TitleTranslated   *string                  `json:"title_translated"`
	BodyTranslated    *string                  `json:"body_translated"`
	TranslationStatus domain.TranslationStatus `json:"translation_status"`
	Provider          string                   `json:"provider,omitempty"`
}

func toStatusResponse(st domain.SchedulerStatus, provider string) statusResponse {
	resp := statusResponse{
		IsRunning:     st.IsRunning,
		JobActive:     st.JobActive,
		LastRunAt:     st.LastRunAt,
		LastRunStatus: st.LastRunStatus,
		RunCount:      st.RunCount,
		NextRunAt:     st.NextRunAt,
		CurrentTime:   st.CurrentTime,
		Timezone:      st.Timezone,
		TriggerHours:  st.TriggerHours,
		Provider:      provider,
	}
	if o := st.LastOutcome; o != nil {
		resp.LastOutcome = &outcomeResponse{
			RunID:           o.RunID,
			Trigger:         o.Trigger,
			Status:          o.Status,
			StartedAt:       o.StartedAt,
			FinishedAt:      o.FinishedAt,
			DurationSeconds: o.Duration().Seconds(),
			ItemsFetched:    o.ItemsFetched,
			ItemsTranslated: o.ItemsTranslated,
			ItemsFailed:     o.ItemsFailed,
			ItemsSkipped:    o.ItemsSkipped,
			ItemsStored:     o.ItemsStored,
			ItemsPurged:     o.ItemsPurged,
			Error:           o.Err,
		}
	}
	return resp
}

func toArticleResponse(item domain.ArticleItem) articleResponse {
	return articleResponse{
		ID:                item.ID,
		Link:              item.Link,
		Feed:              item.Feed,
		PublishedAt:       item.PublishedAt,
		Title:             item.DisplayTitle(),
		Body:              item.DisplayBody(),
		TitleOriginal:     item.TitleOriginal,
		BodyOriginal:      item.BodyOriginal,
		TitleTranslated:   item.TitleTranslated,
		BodyTranslated:    item.BodyTranslated,
		TranslationStatus: item.TranslationStatus,
		Provider:          item.Provider,
	}
}
