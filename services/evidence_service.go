package services

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/abema/go-mp4"
	"github.com/jonboulle/clockwork"
	"github.com/rwcarlsen/goexif/exif"
	"github.com/sirupsen/logrus"
	"golang.org/x/image/draw"

	_ "image/png"

	_ "golang.org/x/image/webp"

	"incidentwatch/events"
	"incidentwatch/metrics"
	"incidentwatch/models"
	"incidentwatch/store"
	"incidentwatch/utils"
)

const (
	maxEvidenceBytes = 50 * 1024 * 1024
	thumbnailEdge    = 200

	evidenceBaseScore       = 50.0
	evidenceCaptureBonus    = 20.0
	evidenceLocationBonus   = 15.0
	evidenceDimensionsBonus = 10.0
	evidenceMaxScore        = 100.0

	// Capture timestamps further than this from the upload time earn no
	// freshness bonus.
	captureFreshnessWindow = time.Hour
)

// EvidenceService stores uploaded media on disk and processes it
// asynchronously: metadata extraction, thumbnailing, and verification
// scoring happen off the request path while the evidence sits in the
// uploading/processing states.
type EvidenceService struct {
	reports *store.ReportStore
	bus     *events.Bus
	clock   clockwork.Clock
	ids     utils.IDGenerator

	uploadPath   string
	baseURL      string
	allowedTypes map[string]models.MediaType

	wg sync.WaitGroup
}

func NewEvidenceService(reports *store.ReportStore, bus *events.Bus, clock clockwork.Clock, ids utils.IDGenerator, uploadPath, baseURL string) *EvidenceService {
	os.MkdirAll(uploadPath, 0755)
	os.MkdirAll(filepath.Join(uploadPath, "thumbnails"), 0755)

	allowedTypes := map[string]models.MediaType{
		"image/jpeg":      models.MediaTypePhoto,
		"image/png":       models.MediaTypePhoto,
		"image/webp":      models.MediaTypePhoto,
		"image/heic":      models.MediaTypePhoto,
		"video/mp4":       models.MediaTypeVideo,
		"video/webm":      models.MediaTypeVideo,
		"video/quicktime": models.MediaTypeVideo,
		"audio/mpeg":      models.MediaTypeAudio,
		"audio/mp3":       models.MediaTypeAudio,
		"audio/wav":       models.MediaTypeAudio,
		"audio/m4a":       models.MediaTypeAudio,
	}

	return &EvidenceService{
		reports:      reports,
		bus:          bus,
		clock:        clock,
		ids:          ids,
		uploadPath:   uploadPath,
		baseURL:      baseURL,
		allowedTypes: allowedTypes,
	}
}

// MediaTypeFor maps a MIME type to its media category. The second return is
// false for types outside the allow-list.
func (es *EvidenceService) MediaTypeFor(mimeType string) (models.MediaType, bool) {
	mt, ok := es.allowedTypes[mimeType]
	return mt, ok
}

// AttachEvidence validates and stores an upload, attaches it to the report
// in the uploading state, and kicks off background processing. The returned
// evidence reflects the state at attach time; clients observe processing
// completion via the evidence_processed event or by re-fetching the report.
func (es *EvidenceService) AttachEvidence(ctx context.Context, reportID string, file multipart.File, header *multipart.FileHeader) (*models.MediaEvidence, error) {
	if es.reports == nil || es.bus == nil {
		return nil, utils.NewNotReadyError("evidence service")
	}

	contentType := header.Header.Get("Content-Type")
	mediaType, ok := es.allowedTypes[contentType]
	if !ok {
		return nil, utils.NewInvalidFileError(fmt.Sprintf("unsupported media type %q", contentType))
	}
	if header.Size > maxEvidenceBytes {
		return nil, utils.NewInvalidFileError(fmt.Sprintf("file exceeds %d byte limit", maxEvidenceBytes))
	}

	if _, ok := es.reports.Get(reportID); !ok {
		return nil, utils.NewReportNotFoundError(reportID)
	}

	evidenceID := es.ids.NewID()
	ext := filepath.Ext(header.Filename)
	storedName := fmt.Sprintf("%s_%s%s", reportID, evidenceID, ext)
	filePath := filepath.Join(es.uploadPath, storedName)

	dst, err := os.Create(filePath)
	if err != nil {
		logrus.Errorf("Failed to create evidence file %s: %v", filePath, err)
		return nil, utils.NewStorageError("failed to save file", err)
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		os.Remove(filePath)
		logrus.Errorf("Failed to write evidence file %s: %v", filePath, err)
		return nil, utils.NewStorageError("failed to save file", err)
	}
	dst.Close()

	evidence := models.MediaEvidence{
		ID:               evidenceID,
		Type:             mediaType,
		URL:              fmt.Sprintf("%s/media/%s", es.baseURL, storedName),
		FileName:         header.Filename,
		FileSize:         header.Size,
		MimeType:         contentType,
		UploadedAt:       es.clock.Now(),
		ProcessingStatus: models.ProcessingUploading,
		ModerationStatus: models.ModerationPending,
	}

	if _, err := es.reports.Update(reportID, func(report *models.IncidentReport) error {
		report.Evidence = append(report.Evidence, evidence)
		report.UpdatedAt = evidence.UploadedAt
		return nil
	}); err != nil {
		os.Remove(filePath)
		return nil, err
	}

	es.wg.Add(1)
	go func() {
		defer es.wg.Done()
		es.processEvidence(reportID, evidenceID, filePath, storedName)
	}()

	return &evidence, nil
}

// Wait blocks until all in-flight processing goroutines finish. Used during
// shutdown and by tests.
func (es *EvidenceService) Wait() {
	es.wg.Wait()
}

func (es *EvidenceService) processEvidence(reportID, evidenceID, filePath, storedName string) {
	es.setProcessingState(reportID, evidenceID, models.ProcessingInProgress)

	var (
		evidence models.MediaEvidence
		found    bool
	)
	if report, ok := es.reports.Get(reportID); ok {
		for _, ev := range report.Evidence {
			if ev.ID == evidenceID {
				evidence = ev
				found = true
				break
			}
		}
	}
	if !found {
		logrus.Warnf("Evidence %s vanished from report %s during processing", evidenceID, reportID)
		return
	}

	metadata, thumbnailURL, procErr := es.extractMetadata(evidence, filePath, storedName)

	status := models.ProcessingReady
	score := 0.0
	if procErr != nil {
		status = models.ProcessingFailed
		logrus.Warnf("Evidence %s processing failed: %v", evidenceID, procErr)
	} else {
		score = es.scoreEvidence(evidence, metadata)
	}

	now := es.clock.Now()
	updated, err := es.reports.Update(reportID, func(report *models.IncidentReport) error {
		for i := range report.Evidence {
			if report.Evidence[i].ID != evidenceID {
				continue
			}
			report.Evidence[i].ProcessingStatus = status
			report.Evidence[i].Metadata = metadata
			report.Evidence[i].ThumbnailURL = thumbnailURL
			report.Evidence[i].VerificationScore = score
			report.UpdatedAt = now
			return nil
		}
		return utils.NewValidationError("evidence not found on report")
	})
	if err != nil {
		logrus.Warnf("Failed to finalize evidence %s on report %s: %v", evidenceID, reportID, err)
		return
	}

	metrics.EvidenceProcessed.WithLabelValues(string(status)).Inc()
	for _, ev := range updated.Evidence {
		if ev.ID == evidenceID {
			es.bus.Publish(events.EventEvidenceProcessed, events.EvidenceEvent{
				ReportID:   reportID,
				EvidenceID: evidenceID,
				Evidence:   ev,
			})
			break
		}
	}
}

func (es *EvidenceService) setProcessingState(reportID, evidenceID string, status models.ProcessingStatus) {
	_, err := es.reports.Update(reportID, func(report *models.IncidentReport) error {
		for i := range report.Evidence {
			if report.Evidence[i].ID == evidenceID {
				report.Evidence[i].ProcessingStatus = status
				return nil
			}
		}
		return utils.NewValidationError("evidence not found on report")
	})
	if err != nil {
		logrus.Debugf("Could not mark evidence %s as %s: %v", evidenceID, status, err)
	}
}

// extractMetadata reads what it can from the stored file. Photos get
// dimensions, a thumbnail, and (for JPEG) EXIF capture time and GPS. Video
// in an MP4 container gets dimensions and duration from the box structure.
// Audio passes through untouched; that still counts as ready.
func (es *EvidenceService) extractMetadata(evidence models.MediaEvidence, filePath, storedName string) (*models.EvidenceMetadata, string, error) {
	switch evidence.Type {
	case models.MediaTypePhoto:
		return es.extractPhotoMetadata(evidence, filePath, storedName)
	case models.MediaTypeVideo:
		metadata, err := es.extractVideoMetadata(evidence, filePath)
		return metadata, "", err
	default:
		return nil, "", nil
	}
}

func (es *EvidenceService) extractPhotoMetadata(evidence models.MediaEvidence, filePath, storedName string) (*models.EvidenceMetadata, string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return nil, "", fmt.Errorf("decode %s: %w", evidence.MimeType, err)
	}
	metadata := &models.EvidenceMetadata{
		Width:  cfg.Width,
		Height: cfg.Height,
	}

	if evidence.MimeType == "image/jpeg" {
		if _, err := f.Seek(0, io.SeekStart); err == nil {
			es.readExif(f, metadata)
		}
	}

	thumbnailURL := ""
	if _, err := f.Seek(0, io.SeekStart); err == nil {
		if url, err := es.generateThumbnail(f, storedName); err != nil {
			logrus.Warnf("Failed to generate thumbnail for %s: %v", storedName, err)
		} else {
			thumbnailURL = url
		}
	}

	return metadata, thumbnailURL, nil
}

// extractVideoMetadata probes MP4-family containers for duration and frame
// size. WebM carries no MP4 box structure and passes through unprobed.
func (es *EvidenceService) extractVideoMetadata(evidence models.MediaEvidence, filePath string) (*models.EvidenceMetadata, error) {
	if evidence.MimeType == "video/webm" {
		return nil, nil
	}

	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	metadata, err := probeMP4(f)
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", evidence.MimeType, err)
	}
	return metadata, nil
}

// probeMP4 reads the movie header for the overall duration, then scans the
// track headers for the first one with a nonzero frame size. Tkhd stores
// width and height as 16.16 fixed point; audio tracks carry zeros there.
func probeMP4(r io.ReadSeeker) (*models.EvidenceMetadata, error) {
	headers, err := mp4.ExtractBoxWithPayload(r, nil, mp4.BoxPath{mp4.BoxTypeMoov(), mp4.BoxTypeMvhd()})
	if err != nil {
		return nil, err
	}
	if len(headers) == 0 {
		return nil, fmt.Errorf("no movie header box")
	}
	mvhd, ok := headers[0].Payload.(*mp4.Mvhd)
	if !ok {
		return nil, fmt.Errorf("unexpected movie header payload")
	}

	metadata := &models.EvidenceMetadata{}
	duration := uint64(mvhd.DurationV0)
	if mvhd.GetVersion() != 0 {
		duration = mvhd.DurationV1
	}
	if mvhd.Timescale > 0 {
		metadata.DurationSeconds = float64(duration) / float64(mvhd.Timescale)
	}

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return metadata, nil
	}
	tracks, err := mp4.ExtractBoxWithPayload(r, nil, mp4.BoxPath{mp4.BoxTypeMoov(), mp4.BoxTypeTrak(), mp4.BoxTypeTkhd()})
	if err != nil {
		return metadata, nil
	}
	for _, track := range tracks {
		tkhd, ok := track.Payload.(*mp4.Tkhd)
		if !ok {
			continue
		}
		width, height := int(tkhd.Width>>16), int(tkhd.Height>>16)
		if width > 0 && height > 0 {
			metadata.Width = width
			metadata.Height = height
			break
		}
	}
	return metadata, nil
}

func (es *EvidenceService) readExif(r io.Reader, metadata *models.EvidenceMetadata) {
	x, err := exif.Decode(r)
	if err != nil {
		return
	}
	if captured, err := x.DateTime(); err == nil {
		metadata.CapturedAt = &captured
	}
	if lat, long, err := x.LatLong(); err == nil && utils.IsValidCoordinate(lat, long) {
		metadata.Latitude = &lat
		metadata.Longitude = &long
	}
	if model, err := x.Get(exif.Model); err == nil {
		if name, err := model.StringVal(); err == nil {
			metadata.Device = strings.TrimSpace(name)
		}
	}
}

// generateThumbnail scales the longer edge down to thumbnailEdge pixels and
// writes a JPEG next to the original under thumbnails/.
func (es *EvidenceService) generateThumbnail(r io.Reader, storedName string) (string, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return "", err
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width > thumbnailEdge || height > thumbnailEdge {
		var newWidth, newHeight int
		if width >= height {
			newWidth = thumbnailEdge
			newHeight = height * thumbnailEdge / width
		} else {
			newHeight = thumbnailEdge
			newWidth = width * thumbnailEdge / height
		}
		resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
		draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)
		img = resized
	}

	thumbName := "thumb_" + strings.TrimSuffix(storedName, filepath.Ext(storedName)) + ".jpg"
	thumbPath := filepath.Join(es.uploadPath, "thumbnails", thumbName)

	out, err := os.Create(thumbPath)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if err := jpeg.Encode(out, img, &jpeg.Options{Quality: 80}); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/media/thumbnails/%s", es.baseURL, thumbName), nil
}

// scoreEvidence rates metadata consistency. Everything starts at the base
// score; fresh capture timestamps, embedded GPS, and decoded photo
// dimensions each add to it.
func (es *EvidenceService) scoreEvidence(evidence models.MediaEvidence, metadata *models.EvidenceMetadata) float64 {
	score := evidenceBaseScore
	if metadata == nil {
		return score
	}

	if metadata.CapturedAt != nil {
		gap := evidence.UploadedAt.Sub(*metadata.CapturedAt)
		if gap < 0 {
			gap = -gap
		}
		if gap <= captureFreshnessWindow {
			score += evidenceCaptureBonus
		}
	}
	if metadata.Latitude != nil && metadata.Longitude != nil {
		score += evidenceLocationBonus
	}
	if evidence.Type == models.MediaTypePhoto && metadata.Width > 0 && metadata.Height > 0 {
		score += evidenceDimensionsBonus
	}

	if score > evidenceMaxScore {
		score = evidenceMaxScore
	}
	return score
}
