package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/keywatch/searchvolume/internal/query"
	"github.com/keywatch/searchvolume/internal/subscription"
)

const timestampLayout = "2006-01-02T15:04:05"

var errMissingQueryService = errors.New("query service dependency required")

type successEnvelope struct {
	Success      bool                  `json:"success"`
	Message      string                `json:"message"`
	SearchVolume []keywordEntryPayload `json:"search_volume"`
}

type keywordEntryPayload struct {
	KeywordID   int64              `json:"keyword_id"`
	KeywordName string             `json:"keyword_name,omitempty"`
	Status      string             `json:"status"`
	Error       bool               `json:"error"`
	Data        []dataPointPayload `json:"data"`
}

type dataPointPayload struct {
	CreatedDatetime string `json:"created_datetime,omitempty"`
	CreatedDate     string `json:"created_date,omitempty"`
	SearchVolume    int64  `json:"search_volume"`
}

// queryParams is the raw query string before validation.
type queryParams struct {
	userID     string
	keywordsID string
	timing     string
	startTime  string
	endTime    string
}

func (h *httpHandler) handleQuery(c *gin.Context) {
	started := time.Now()
	defer func() {
		if h.metrics != nil {
			h.metrics.ObserveQueryDuration(time.Since(started).Seconds())
		}
	}()

	params := queryParams{
		userID:     c.Query("user_id"),
		keywordsID: c.Query("keywords_id"),
		timing:     c.Query("timing"),
		startTime:  c.Query("start_time"),
		endTime:    c.Query("end_time"),
	}

	req, validationMsg := buildRequest(params)
	if validationMsg != "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Validation failed",
			"errors":  validationMsg,
		})
		return
	}

	if tokenUserID, ok := c.Get(userIDContextKey); ok {
		if subject, isInt := tokenUserID.(int64); isInt && subject != req.UserID {
			c.JSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": "Unauthorized Users",
				"errors":  "token subject does not match user_id",
			})
			return
		}
	}

	result, err := h.queries.Execute(c.Request.Context(), req)
	if err != nil {
		h.logger.Error("query execution failed", zap.Error(err), zap.Int64("user_id", req.UserID))
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Internal Server Error",
			"error":   err.Error(),
		})
		return
	}

	if h.metrics != nil {
		for _, kw := range result.Keywords {
			h.metrics.ObserveVerdict(result.Capability.String(), !kw.Failed)
		}
	}

	if result.AllDenied() {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"message": "Unauthorized Users",
			"errors":  result.DeniedKeywordIDs(),
		})
		return
	}

	c.JSON(http.StatusOK, successEnvelope{
		Success:      true,
		Message:      "Query executed successfully",
		SearchVolume: assembleEntries(result),
	})
}

// buildRequest validates raw parameters and converts unix timestamps to UTC
// calendar dates. A non-empty message describes the first validation failure.
func buildRequest(params queryParams) (query.Request, string) {
	missing := missingFields(params)
	if len(missing) > 0 {
		return query.Request{}, fmt.Sprintf("Missing required fields %s.", strings.Join(missing, ", "))
	}

	capability, err := subscription.ParseCapability(params.timing)
	if err != nil {
		return query.Request{}, "Only support 'HOURLY' and 'DAILY' timing."
	}

	userID, err := strconv.ParseInt(strings.TrimSpace(params.userID), 10, 64)
	if err != nil {
		return query.Request{}, "Field user_id must be an integer."
	}

	keywordIDs, err := parseKeywordIDs(params.keywordsID)
	if err != nil {
		return query.Request{}, "Field keywords_id must be a comma-separated list of integers."
	}

	startUnix, err := strconv.ParseInt(strings.TrimSpace(params.startTime), 10, 64)
	if err != nil {
		return query.Request{}, "Field start_time must be a unix timestamp."
	}
	endUnix, err := strconv.ParseInt(strings.TrimSpace(params.endTime), 10, 64)
	if err != nil {
		return query.Request{}, "Field end_time must be a unix timestamp."
	}

	startDate := subscription.DateOf(time.Unix(startUnix, 0))
	endDate := subscription.DateOf(time.Unix(endUnix, 0))
	if startDate.After(endDate) {
		return query.Request{}, "Field start_time must not be after end_time."
	}

	return query.Request{
		UserID:     userID,
		KeywordIDs: keywordIDs,
		Capability: capability,
		StartDate:  startDate,
		EndDate:    endDate,
	}, ""
}

func missingFields(params queryParams) []string {
	var missing []string
	for _, field := range []struct {
		name  string
		value string
	}{
		{"user_id", params.userID},
		{"keywords_id", params.keywordsID},
		{"timing", params.timing},
		{"start_time", params.startTime},
		{"end_time", params.endTime},
	} {
		if strings.TrimSpace(field.value) == "" {
			missing = append(missing, field.name)
		}
	}
	return missing
}

func parseKeywordIDs(raw string) ([]int64, error) {
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func assembleEntries(result query.Result) []keywordEntryPayload {
	entries := make([]keywordEntryPayload, 0, len(result.Keywords))
	for _, kw := range result.Keywords {
		entry := keywordEntryPayload{
			KeywordID:   kw.KeywordID,
			KeywordName: kw.KeywordName,
			Status:      kw.Status,
			Error:       kw.Failed,
			Data:        make([]dataPointPayload, 0, len(kw.Points)),
		}
		for _, point := range kw.Points {
			formatted := point.Timestamp.UTC().Format(timestampLayout)
			if result.Capability == subscription.CapabilityHourly {
				entry.Data = append(entry.Data, dataPointPayload{
					CreatedDatetime: formatted,
					SearchVolume:    point.Volume,
				})
			} else {
				entry.Data = append(entry.Data, dataPointPayload{
					CreatedDate:  formatted,
					SearchVolume: point.Volume,
				})
			}
		}
		entries = append(entries, entry)
	}
	return entries
}
