package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/qr-table-order/kds"
	"github.com/yeremiapane/qr-table-order/models"
	"github.com/yeremiapane/qr-table-order/utils"
	"gorm.io/gorm"
)

const defaultAudioType = "audio/webm"

type CreateRequestInput struct {
	Session *models.TableSession

	// TableNo is optional; when sent it must name the session's table.
	TableNo string

	Type      models.RequestType
	UserLat   *float64
	UserLng   *float64
	AudioData string
}

// RequestService is the queue of ad-hoc customer calls. Requests are
// broadcast to every dashboard; nobody is assigned.
type RequestService struct {
	db       *gorm.DB
	sessions *SessionService
	audio    AudioStore
	events   Broadcaster
}

// NewRequestService wires the queue. audio may be nil, in which case
// recordings are kept inline in the request row.
func NewRequestService(db *gorm.DB, sessions *SessionService, audio AudioStore, events Broadcaster) *RequestService {
	return &RequestService{
		db:       db,
		sessions: sessions,
		audio:    audio,
		events:   orNop(events),
	}
}

func (s *RequestService) CreateRequest(ctx context.Context, in CreateRequestInput) (*models.ServiceRequest, error) {
	if !in.Type.Valid() {
		return nil, utils.Validation(fmt.Sprintf("unknown request type %q", in.Type))
	}
	audio := strings.TrimSpace(in.AudioData)
	if in.Type == models.RequestVoiceOrder && audio == "" {
		return nil, utils.Validation("audioData is required for voice orders")
	}

	check, err := s.sessions.ValidateSession(ctx, in.Session)
	if err != nil {
		return nil, err
	}
	if !check.Valid {
		return nil, ErrInvalidSession
	}
	if no := strings.TrimSpace(in.TableNo); no != "" && no != check.Table.Number {
		return nil, utils.Validation("tableNo does not match the table session")
	}

	req := models.ServiceRequest{
		TableNo: check.Table.Number,
		Type:    in.Type,
		Status:  models.RequestPending,
		UserLat: in.UserLat,
		UserLng: in.UserLng,
	}
	if audio != "" {
		if err := s.attachAudio(ctx, &req, audio); err != nil {
			return nil, err
		}
	}

	if err := s.db.WithContext(ctx).Create(&req).Error; err != nil {
		return nil, fmt.Errorf("create service request: %w", err)
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"request_id": req.ID,
		"table":      req.TableNo,
		"type":       req.Type,
	}).Info("service request created")
	s.events.Broadcast(kds.EventRequestCreated, req)
	return &req, nil
}

// attachAudio uploads the recording when an object store is configured and
// falls back to keeping the encoded payload on the row.
func (s *RequestService) attachAudio(ctx context.Context, req *models.ServiceRequest, encoded string) error {
	contentType, data, err := decodeAudio(encoded)
	if err != nil {
		return err
	}
	if s.audio == nil {
		req.AudioData = &encoded
		return nil
	}

	key := "voice/" + uuid.NewString()
	if err := s.audio.Put(ctx, key, data, contentType); err != nil {
		return fmt.Errorf("store voice recording: %w", err)
	}
	req.AudioKey = &key
	return nil
}

// ResolveRequest moves a request to COMPLETED or CANCELLED. Resolving an
// already resolved request is allowed.
func (s *RequestService) ResolveRequest(ctx context.Context, id uint, status models.RequestStatus) (*models.ServiceRequest, error) {
	if !status.Terminal() {
		return nil, utils.Validation("status must be COMPLETED or CANCELLED")
	}

	req, err := s.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := req.Status

	if err := s.db.WithContext(ctx).Model(req).Update("status", status).Error; err != nil {
		return nil, fmt.Errorf("resolve service request: %w", err)
	}
	req.Status = status

	utils.InfoLogger.WithFields(logrus.Fields{
		"request_id": req.ID,
		"status":     fmt.Sprintf("%s->%s", previous, status),
	}).Info("service request resolved")
	s.events.Broadcast(kds.EventRequestUpdate, req)
	return req, nil
}

func (s *RequestService) GetRequest(ctx context.Context, id uint) (*models.ServiceRequest, error) {
	var req models.ServiceRequest
	if err := s.db.WithContext(ctx).First(&req, id).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("load service request: %w", err)
	}
	return &req, nil
}

// ListRequests returns requests oldest first, optionally filtered by status.
func (s *RequestService) ListRequests(ctx context.Context, status models.RequestStatus) ([]models.ServiceRequest, error) {
	q := s.db.WithContext(ctx).Model(&models.ServiceRequest{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	requests := []models.ServiceRequest{}
	if err := q.Order("created_at asc").Find(&requests).Error; err != nil {
		return nil, fmt.Errorf("list service requests: %w", err)
	}
	return requests, nil
}

// RequestAudio returns the decoded recording attached to a request.
func (s *RequestService) RequestAudio(ctx context.Context, id uint) ([]byte, string, error) {
	req, err := s.GetRequest(ctx, id)
	if err != nil {
		return nil, "", err
	}

	switch {
	case req.AudioKey != nil && *req.AudioKey != "":
		if s.audio == nil {
			return nil, "", fmt.Errorf("request %d has stored audio but no audio store is configured", req.ID)
		}
		data, contentType, err := s.audio.Get(ctx, *req.AudioKey)
		if err != nil {
			return nil, "", err
		}
		if contentType == "" {
			contentType = defaultAudioType
		}
		return data, contentType, nil
	case req.AudioData != nil && *req.AudioData != "":
		contentType, data, err := decodeAudio(*req.AudioData)
		if err != nil {
			return nil, "", err
		}
		return data, contentType, nil
	}
	return nil, "", ErrAudioNotPresent
}

// decodeAudio accepts plain base64 or a data URL such as
// "data:audio/webm;base64,....".
func decodeAudio(encoded string) (string, []byte, error) {
	contentType := defaultAudioType
	payload := encoded

	if strings.HasPrefix(encoded, "data:") {
		header, body, ok := strings.Cut(encoded, ",")
		if !ok {
			return "", nil, utils.Validation("audioData is not a valid data URL")
		}
		meta := strings.TrimPrefix(header, "data:")
		if !strings.HasSuffix(meta, ";base64") {
			return "", nil, utils.Validation("audioData must be base64 encoded")
		}
		if mime := strings.TrimSuffix(meta, ";base64"); mime != "" {
			contentType = mime
		}
		payload = body
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, utils.Validation("audioData must be base64 encoded")
	}
	if len(data) == 0 {
		return "", nil, utils.Validation("audioData is empty")
	}
	return contentType, data, nil
}
