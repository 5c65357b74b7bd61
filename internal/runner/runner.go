package runner

import (
	"fmt"

	"go.uber.org/zap"
	"gocv.io/x/gocv"
	"golang.org/x/sync/errgroup"

	"shadowboard/internal/calib"
	"shadowboard/internal/classify"
	"shadowboard/internal/config"
	"shadowboard/internal/decode"
	"shadowboard/internal/payload"
	"shadowboard/internal/rectify"
	"shadowboard/internal/region"
	"shadowboard/internal/similarity"
)

// Runner executes a batch of camera tasks. Cameras run concurrently and are
// isolated from one another: any per-camera failure is recorded on its own
// result and never cancels the rest. Slots within a camera run sequentially
// over the single captured frame.
type Runner struct {
	layout     calib.BoardLayout
	outWidth   int
	outHeight  int
	reader     *decode.Reader
	comparator *similarity.Comparator
	thresholds classify.Thresholds
	frames     FrameSource
	log        *zap.Logger
}

// New builds a Runner from configuration. The frame source is injected so
// batch runs can use live devices or still images interchangeably.
func New(cfg *config.Config, frames FrameSource, log *zap.Logger) *Runner {
	return &Runner{
		layout:     cfg.Layout(),
		outWidth:   cfg.Rectified.Width,
		outHeight:  cfg.Rectified.Height,
		reader:     decode.NewReader(payload.NewVerifier(cfg.Secret)),
		comparator: similarity.NewComparator(cfg.Similarity.PatchSize),
		thresholds: classify.Thresholds{
			Empty:    cfg.Similarity.EmptyThreshold,
			Occupied: cfg.Similarity.OccupiedThreshold,
		},
		frames: frames,
		log:    log,
	}
}

// Close releases the decoder held across runs.
func (r *Runner) Close() error {
	return r.reader.Close()
}

// Run processes all camera tasks and aggregates the batch outcome.
func (r *Runner) Run(tasks []CameraTask) RunResult {
	results := make([]CameraRunResult, len(tasks))

	var g errgroup.Group
	for i, task := range tasks {
		i, task := i, task
		g.Go(func() error {
			results[i] = r.runCamera(task)
			return nil
		})
	}
	// Worker closures never return errors; failures live in the results.
	_ = g.Wait()

	run := Aggregate(results)
	r.log.Info("run complete",
		zap.String("status", string(run.Status)),
		zap.Int("cameras", run.CamerasProcessed),
		zap.Int("slots", run.SlotsProcessed))
	return run
}

func (r *Runner) runCamera(task CameraTask) CameraRunResult {
	log := r.log.With(zap.String("camera", task.CameraID))
	res := CameraRunResult{
		CameraID: task.CameraID,
		Status:   CameraSuccess,
		Slots:    []SlotObservation{},
		Errors:   []string{},
	}

	frame, err := r.frames.Capture(task.Device)
	if err != nil {
		log.Error("capture failed", zap.Error(err))
		res.Status = CameraFailed
		res.Errors = append(res.Errors, err.Error())
		return res
	}
	defer frame.Close()

	rectified, err := rectify.Rectify(frame, task.Calibration, r.layout, r.outWidth, r.outHeight)
	if err != nil {
		log.Error("rectification failed", zap.Error(err))
		res.Status = CameraFailed
		res.Errors = append(res.Errors, err.Error())
		return res
	}
	defer rectified.Close()

	for _, slot := range task.Slots {
		obs := r.processSlot(rectified, slot, log)
		if obs.Status == classify.StatusProcessingError {
			res.Status = CameraDegraded
			res.Errors = append(res.Errors, fmt.Sprintf("slot %s: %s", slot.ID, obs.Error))
		}
		res.Slots = append(res.Slots, obs)
	}
	return res
}

// processSlot runs the extract, decode, compare, classify chain for one
// slot. Slot-local failures degrade only this observation.
func (r *Runner) processSlot(rectified gocv.Mat, def SlotDefinition, log *zap.Logger) SlotObservation {
	obs := SlotObservation{SlotID: def.ID, Status: classify.StatusProcessingError}

	regionMat, err := region.Extract(rectified, def.PolygonPoints())
	if err != nil {
		obs.Error = err.Error()
		return obs
	}
	defer regionMat.Close()

	img, err := regionMat.ToImage()
	if err != nil {
		obs.Error = fmt.Sprintf("convert region: %v", err)
		return obs
	}
	obs.QualityScore = similarity.Quality(img)

	payloads, err := r.reader.Decode(regionMat)
	if err != nil {
		obs.Error = err.Error()
		return obs
	}

	ev := classify.Evidence{
		ExpectedID: def.ExpectedIdentity,
		Payloads:   payloads,
	}
	if def.BaselineEmptyRef != "" {
		if base, err := similarity.LoadBaseline(def.BaselineEmptyRef); err == nil {
			ev.SimilarityEmpty = r.comparator.Compare(img, base)
		} else {
			log.Warn("empty baseline unavailable",
				zap.String("slot", def.ID), zap.Error(err))
		}
	}
	if def.BaselineOccupiedRef != "" {
		if base, err := similarity.LoadBaseline(def.BaselineOccupiedRef); err == nil {
			ev.SimilarityOccupied = r.comparator.Compare(img, base)
		} else {
			log.Warn("occupied baseline unavailable",
				zap.String("slot", def.ID), zap.Error(err))
		}
	}

	d := classify.Classify(ev, r.thresholds)
	obs.Status = d.Status
	obs.DecodedIdentity = d.DecodedID
	obs.WorkerName = d.WorkerName
	obs.CorrectItem = d.CorrectItem
	obs.AlertTriggered = d.Alert
	if ev.SimilarityEmpty.Valid {
		v := ev.SimilarityEmpty.Value
		obs.SimilarityEmpty = &v
	}
	if ev.SimilarityOccupied.Valid {
		v := ev.SimilarityOccupied.Value
		obs.SimilarityOccupied = &v
	}

	log.Debug("slot classified",
		zap.String("slot", def.ID),
		zap.String("status", string(obs.Status)),
		zap.Bool("alert", obs.AlertTriggered))
	return obs
}
