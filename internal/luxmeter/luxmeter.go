package luxmeter

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/ztkent/lux-meter/tsl2591"
)

type LuxMeter struct {
	*tsl2591.TSL2591
	LuxResultsChan chan LuxResults
	ResultsDB      *sql.DB
	Log            logrus.FieldLogger
	Interval       time.Duration
	MaxJobDuration time.Duration
	DBPath         string
	Location       *time.Location
	Pid            int

	mu     sync.Mutex
	cancel context.CancelFunc
	jobID  string
	done   chan struct{}
}

type LuxResults struct {
	Lux             float64
	Infrared        float64
	Visible         float64
	FullSpectrum    float64
	Gain            string
	IntegrationTime string
	JobID           string
}

type Conditions struct {
	JobID                 string    `json:"jobID"`
	Lux                   float64   `json:"lux"`
	FullSpectrum          float64   `json:"fullSpectrum"`
	Visible               float64   `json:"visible"`
	Infrared              float64   `json:"infrared"`
	Gain                  string    `json:"gain,omitempty"`
	IntegrationTime       string    `json:"integrationTime,omitempty"`
	RecordedAt            time.Time `json:"recordedAt,omitempty"`
	DateRange             string    `json:"dateRange,omitempty"`
	RecordedHoursInRange  float64   `json:"recordedHoursInRange"`
	FullSunlightInRange   float64   `json:"fullSunlightInRange"`
	LightConditionInRange string    `json:"lightConditionInRange,omitempty"`
	AverageLuxInRange     float64   `json:"averageLuxInRange"`
}

const (
	MAX_JOB_DURATION = 8 * time.Hour
	RECORD_INTERVAL  = 30 * time.Second
	DB_PATH          = "luxmeter.db"
)

var (
	ErrJobRunning    = errors.New("a job is already running")
	ErrJobNotRunning = errors.New("no job is running")
)

// Running reports the id of the active job, if any.
func (m *LuxMeter) Running() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.jobID, m.cancel != nil
}

// StartJob samples the sensor in the background until StopJob is called or
// MaxJobDuration elapses.
func (m *LuxMeter) StartJob() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return "", ErrJobRunning
	}

	maxDuration := m.MaxJobDuration
	if maxDuration <= 0 {
		maxDuration = MAX_JOB_DURATION
	}
	ctx, cancel := context.WithTimeout(context.Background(), maxDuration)
	jobID := uuid.New().String()
	done := make(chan struct{})
	m.cancel, m.jobID, m.done = cancel, jobID, done

	go func() {
		defer close(done)
		defer m.finishJob(jobID)
		m.runJob(ctx, jobID)
	}()
	return jobID, nil
}

// StopJob cancels the active job and waits for its sampling cycle to finish.
func (m *LuxMeter) StopJob() error {
	m.mu.Lock()
	if m.cancel == nil {
		m.mu.Unlock()
		return ErrJobNotRunning
	}
	m.cancel()
	done := m.done
	m.mu.Unlock()

	<-done
	return nil
}

func (m *LuxMeter) finishJob(jobID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.jobID != jobID {
		return
	}
	m.cancel()
	m.cancel, m.jobID = nil, ""
}

func (m *LuxMeter) runJob(ctx context.Context, jobID string) {
	log := m.Log.WithField("job_id", jobID)
	log.Info("It's going to be a bright day!")

	interval := m.Interval
	if interval <= 0 {
		interval = RECORD_INTERVAL
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("Job cancelled, stopping sensor")
			return
		default:
		}

		reading, err := m.TSL2591.Read()
		switch {
		case errors.Is(err, tsl2591.ErrSaturated):
			log.WithError(err).Warn("The sensor is saturated")
			if err := m.ReduceSensitivity(); err != nil {
				log.WithError(err).Error("The sensor could not be made less sensitive")
				break
			}
			s := m.Settings()
			log.Infof("Reconfigured - Gain: %v, Integration Time: %v", s.Gain, s.Timing)
			continue
		case err != nil:
			log.WithError(err).Error("The sensor failed to get luminosity")
		default:
			result := LuxResults{
				Lux:             reading.Lux,
				Visible:         reading.Normalized(tsl2591.TSL2591_VISIBLE),
				Infrared:        reading.Normalized(tsl2591.TSL2591_INFRARED),
				FullSpectrum:    reading.Normalized(tsl2591.TSL2591_FULLSPECTRUM),
				Gain:            reading.Gain.String(),
				IntegrationTime: reading.Timing.String(),
				JobID:           jobID,
			}
			select {
			case m.LuxResultsChan <- result:
			case <-ctx.Done():
				return
			}
		}

		select {
		case <-ctx.Done():
			log.Info("Job cancelled, stopping sensor")
			return
		case <-ticker.C:
		}
	}
}

// Read from LuxResultsChan, write the results to sqlite
func (m *LuxMeter) MonitorAndRecordResults(ctx context.Context) {
	m.Log.Info("Monitoring for new lux results...")
	for {
		select {
		case <-ctx.Done():
			return
		case result := <-m.LuxResultsChan:
			m.Log.WithField("job_id", result.JobID).Infof("Lux: %.5f", result.Lux)
			if err := m.recordResult(result); err != nil {
				m.Log.WithError(err).Error("Failed to record result")
			}
		}
	}
}

func (m *LuxMeter) recordResult(result LuxResults) error {
	if math.IsInf(result.Lux, 0) || math.IsNaN(result.Lux) {
		return fmt.Errorf("lux is invalid: %v", result.Lux)
	}
	_, err := m.ResultsDB.Exec(
		"INSERT INTO readings (job_id, lux, full_spectrum, visible, infrared, gain, integration_time) VALUES (?, ?, ?, ?, ?, ?, ?)",
		result.JobID,
		result.Lux,
		result.FullSpectrum,
		result.Visible,
		result.Infrared,
		result.Gain,
		result.IntegrationTime,
	)
	return err
}

// Start the sensor, and collect data in a loop
func (m *LuxMeter) Start() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if m.TSL2591 == nil {
			ServeResponse(w, r, "The sensor is not connected", http.StatusBadRequest)
			return
		}
		jobID, err := m.StartJob()
		if errors.Is(err, ErrJobRunning) {
			ServeResponse(w, r, "The sensor is already started", http.StatusBadRequest)
			return
		} else if err != nil {
			ServeResponse(w, r, err.Error(), http.StatusInternalServerError)
			return
		}
		ServeResponse(w, r, "Lux Reading Started: "+jobID, http.StatusOK)
	}
}

// Stop the sensor, and cancel the job context
func (m *LuxMeter) Stop() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if m.TSL2591 == nil {
			ServeResponse(w, r, "The sensor is not connected", http.StatusBadRequest)
			return
		}
		if err := m.StopJob(); err != nil {
			ServeResponse(w, r, "The sensor is already stopped", http.StatusBadRequest)
			return
		}
		ServeResponse(w, r, "Lux Reading Stopped", http.StatusOK)
	}
}

// Serve data about the most recent entry saved to the db
func (m *LuxMeter) CurrentConditions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conditions, err := m.getCurrentConditions()
		if errors.Is(err, sql.ErrNoRows) {
			ServeResponse(w, r, "No readings recorded", http.StatusNotFound)
			return
		} else if err != nil {
			m.Log.WithError(err).Error("Failed to load current conditions")
			ServeResponse(w, r, err.Error(), http.StatusInternalServerError)
			return
		}
		serveJSON(w, conditions, http.StatusOK)
	}
}

// Return the most recent entry saved to the db
func (m *LuxMeter) getCurrentConditions() (Conditions, error) {
	conditions := Conditions{}
	row := m.ResultsDB.QueryRow("SELECT job_id, lux, full_spectrum, visible, infrared, gain, integration_time, created_at FROM readings ORDER BY id DESC LIMIT 1")
	err := row.Scan(
		&conditions.JobID,
		&conditions.Lux,
		&conditions.FullSpectrum,
		&conditions.Visible,
		&conditions.Infrared,
		&conditions.Gain,
		&conditions.IntegrationTime,
		&conditions.RecordedAt,
	)
	if err != nil {
		return Conditions{}, err
	}
	return conditions, nil
}

// Status of the sensor and the sampling job
func (m *LuxMeter) ServeSensorStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		type Status struct {
			Connected       bool   `json:"connected"`
			Running         bool   `json:"running"`
			JobID           string `json:"jobID,omitempty"`
			Enabled         bool   `json:"enabled"`
			Gain            string `json:"gain,omitempty"`
			IntegrationTime string `json:"integrationTime,omitempty"`
			MaxCount        uint16 `json:"maxCount,omitempty"`
			Pid             int    `json:"pid"`
		}
		status := Status{Pid: m.Pid}
		status.JobID, status.Running = m.Running()
		if m.TSL2591 != nil {
			s := m.Settings()
			status.Connected = true
			status.Enabled = s.Enabled
			status.Gain = s.Gain.String()
			status.IntegrationTime = s.Timing.String()
			status.MaxCount = s.MaxCount
		}
		serveJSON(w, status, http.StatusOK)
	}
}

// Change gain and/or integration time. Refused while a job is running.
func (m *LuxMeter) UpdateSettings() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if m.TSL2591 == nil {
			ServeResponse(w, r, "The sensor is not connected", http.StatusBadRequest)
			return
		}
		if _, running := m.Running(); running {
			ServeResponse(w, r, "Stop the running job before changing settings", http.StatusConflict)
			return
		}

		r.ParseForm()
		var (
			gain, timing       = tsl2591.Gain(0), tsl2591.IntegrationTime(0)
			setGain, setTiming bool
			err                error
		)
		if v := r.FormValue("gain"); v != "" {
			if gain, err = tsl2591.ParseGain(v); err != nil {
				ServeResponse(w, r, err.Error(), http.StatusBadRequest)
				return
			}
			setGain = true
		}
		if v := r.FormValue("integration_time"); v != "" {
			if timing, err = tsl2591.ParseIntegrationTime(v); err != nil {
				ServeResponse(w, r, err.Error(), http.StatusBadRequest)
				return
			}
			setTiming = true
		}
		if !setGain && !setTiming {
			ServeResponse(w, r, "Provide gain and/or integration_time", http.StatusBadRequest)
			return
		}

		if setTiming {
			err = m.SetTiming(timing)
		}
		if err == nil && setGain {
			err = m.SetGain(gain)
		}
		if err != nil {
			m.Log.WithError(err).Error("Failed to update sensor settings")
			ServeResponse(w, r, err.Error(), http.StatusInternalServerError)
			return
		}
		s := m.Settings()
		ServeResponse(w, r, fmt.Sprintf("Gain: %v, Integration Time: %v", s.Gain, s.Timing), http.StatusOK)
	}
}

// Reply with a JSON message
func ServeResponse(w http.ResponseWriter, r *http.Request, message string, status int) {
	serveJSON(w, map[string]string{"message": message}, status)
}

func serveJSON(w http.ResponseWriter, v interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
