package faceid

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/smarthome-app/smarthome-core/internal/infrastructure/config"
)

// NotDetected is the identity a classifier returns when nobody is recognized.
const NotDetected = "not_detected"

const (
	defaultClassifierTimeout = 10 * time.Second
	identifyPath             = "/identify"
)

// ErrClassifierFailed is returned when the external classifier errors or
// answers with something unusable.
var ErrClassifierFailed = errors.New("faceid: classifier failed")

// Classifier identifies the person in an image.
type Classifier interface {
	Classify(ctx context.Context, image []byte) (identity string, err error)
}

// RemoteClassifier calls an HTTP face classifier:
//
//	POST {base}/identify   (body: raw image)
//	200 {"identity": "alice", "confidence": 0.93}
type RemoteClassifier struct {
	http *resty.Client
}

type identifyResponse struct {
	Identity   string  `json:"identity"`
	Confidence float64 `json:"confidence"`
	Error      string  `json:"error"`
}

// NewRemoteClassifier builds a client from configuration.
func NewRemoteClassifier(cfg config.FaceRecognitionConfig) *RemoteClassifier {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = defaultClassifierTimeout
	}

	client := resty.New().
		SetBaseURL(cfg.ClassifierURL).
		SetTimeout(timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Accept", "application/json")

	return &RemoteClassifier{http: client}
}

// Classify sends image to the classifier and returns the identity.
func (c *RemoteClassifier) Classify(ctx context.Context, image []byte) (string, error) {
	if len(image) == 0 {
		return "", fmt.Errorf("%w: empty image", ErrClassifierFailed)
	}

	var out identifyResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/octet-stream").
		SetBody(image).
		SetResult(&out).
		SetError(&out).
		Post(identifyPath)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrClassifierFailed, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("%w: status %d: %s", ErrClassifierFailed, resp.StatusCode(), out.Error)
	}
	if out.Identity == "" {
		return "", fmt.Errorf("%w: response has no identity", ErrClassifierFailed)
	}
	return out.Identity, nil
}

// Identify classifies image and relays the outcome as an event from deviceID.
func (r *Relay) Identify(ctx context.Context, classifier Classifier, deviceID string, image []byte) (string, *Result, error) {
	identity, err := classifier.Classify(ctx, image)
	if err != nil {
		return "", nil, err
	}
	res, err := r.Handle(ctx, Event{
		DeviceID:   deviceID,
		Recognized: identity != NotDetected,
	})
	return identity, res, err
}
