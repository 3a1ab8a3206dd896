package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/sirupsen/logrus"

	"call-insights-go/internal/pipeline"
)

type storageRecord struct {
	AWSRegion string `json:"awsRegion"`
	S3        struct {
		Bucket struct {
			Name string `json:"name"`
		} `json:"bucket"`
		Object struct {
			Key  string  `json:"key"`
			Size float64 `json:"size"`
		} `json:"object"`
	} `json:"s3"`
}

type storageNotification struct {
	Records []storageRecord `json:"Records"`
}

// queueEnvelope wraps a notification delivered through a queue. Body holds
// the notification as a JSON string.
type queueEnvelope struct {
	Records []struct {
		Body string `json:"body"`
	} `json:"Records"`
}

type eventResult struct {
	Key            string `json:"key"`
	CampaignID     string `json:"campaign_id,omitempty"`
	AudioID        string `json:"audio_id,omitempty"`
	Skipped        bool   `json:"skipped,omitempty"`
	AlreadyStarted bool   `json:"already_started,omitempty"`
	Error          string `json:"error,omitempty"`
}

type eventsResponse struct {
	Processed int           `json:"processed"`
	Skipped   int           `json:"skipped"`
	Rejected  int           `json:"rejected"`
	Results   []eventResult `json:"results"`
}

// parseObjectKey splits "<campaignId>/audio/<fileName>".
func parseObjectKey(key string) (campaignID, fileName string, ok bool) {
	campaignID, rest, found := strings.Cut(key, "/audio/")
	if !found || campaignID == "" || strings.Contains(campaignID, "/") {
		return "", "", false
	}
	fileName = path.Base(rest)
	if rest == "" || fileName == "." || fileName == "/" {
		return "", "", false
	}
	return campaignID, fileName, true
}

// objectURL is the virtual-hosted https address of an object, which the
// transcription service can fetch.
func objectURL(bucket, region, key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	host := bucket + ".s3.amazonaws.com"
	if region != "" {
		host = bucket + ".s3." + region + ".amazonaws.com"
	}
	return "https://" + host + "/" + strings.Join(segments, "/")
}

// storageRecords accepts a bare notification or a queue envelope.
func storageRecords(raw []byte) ([]storageRecord, error) {
	var env queueEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	var out []storageRecord
	wrapped := false
	for _, rec := range env.Records {
		if rec.Body == "" {
			continue
		}
		wrapped = true
		var n storageNotification
		if err := json.Unmarshal([]byte(rec.Body), &n); err != nil {
			return nil, fmt.Errorf("envelope body: %w", err)
		}
		out = append(out, n.Records...)
	}
	if wrapped {
		return out, nil
	}

	var n storageNotification
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, err
	}
	return n.Records, nil
}

// storageEvents registers every uploaded audio object. Records for unknown
// campaigns are reported and dropped. Any other failure answers 500 so the
// sender redelivers the whole batch; registration is idempotent.
func (s *Server) storageEvents(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		s.fail(w, r, fmt.Errorf("%w: %s", errBadRequest, err))
		return
	}
	records, err := storageRecords(raw)
	if err != nil {
		s.fail(w, r, fmt.Errorf("%w: %s", errBadRequest, err))
		return
	}

	resp := eventsResponse{Results: []eventResult{}}
	for _, rec := range records {
		key, err := url.QueryUnescape(rec.S3.Object.Key)
		if err != nil {
			key = rec.S3.Object.Key
		}
		campaignID, fileName, ok := parseObjectKey(key)
		if !ok {
			s.log.WithField("key", key).Debug("ignoring object outside an audio prefix")
			resp.Skipped++
			resp.Results = append(resp.Results, eventResult{Key: key, Skipped: true})
			continue
		}

		res, err := s.pipeline.RegisterAndTrigger(r.Context(), pipeline.TriggerRequest{
			CampaignID:  campaignID,
			FileName:    fileName,
			StoragePath: fmt.Sprintf("s3://%s/%s", rec.S3.Bucket.Name, key),
			AudioURL:    objectURL(rec.S3.Bucket.Name, rec.AWSRegion, key),
		})
		if errors.Is(err, pipeline.ErrCampaignNotFound) {
			s.log.WithFields(logrus.Fields{"key": key, "campaign_id": campaignID}).Warn("storage event for unknown campaign")
			resp.Rejected++
			resp.Results = append(resp.Results, eventResult{Key: key, CampaignID: campaignID, Error: err.Error()})
			continue
		}
		if err != nil {
			s.log.WithFields(logrus.Fields{"key": key, "error": err.Error()}).Error("storage event registration failed")
			writeJSON(w, http.StatusInternalServerError, errorBody{Error: "registration failed", Details: []string{key}})
			return
		}

		out := eventResult{Key: key, CampaignID: campaignID, Skipped: res.Skipped, AlreadyStarted: res.AlreadyStarted}
		if res.Unit != nil {
			out.AudioID = res.Unit.AudioID
		}
		if res.Skipped {
			resp.Skipped++
		} else {
			resp.Processed++
		}
		resp.Results = append(resp.Results, out)
	}
	writeJSON(w, http.StatusOK, resp)
}
