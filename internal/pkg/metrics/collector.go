package metrics

import (
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/mem"

	"containerCracker/internal/core/domain"
)

// Sampler reads the current system CPU and memory utilisation in percent.
type Sampler func() (cpuPct, memPct float64, err error)

// SystemSampler samples the host through gopsutil. The CPU figure covers
// the time since the previous call.
func SystemSampler() (float64, float64, error) {
	cpuUsage, err := cpu.Percent(0, false)
	if err != nil {
		return 0, 0, err
	}
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, 0, err
	}
	var c float64
	if len(cpuUsage) > 0 {
		c = cpuUsage[0]
	}
	return c, vm.UsedPercent, nil
}

type run struct {
	metrics domain.ResourceMetrics
	cpuSum  float64
	stop    chan struct{}
	done    chan struct{}
}

// Collector samples resource usage for the duration of each attack run.
type Collector struct {
	mu             sync.RWMutex
	runs           map[string]*run
	updateInterval time.Duration
	sample         Sampler
}

func NewCollector(interval time.Duration, sampler Sampler) *Collector {
	if interval <= 0 {
		interval = time.Second
	}
	if sampler == nil {
		sampler = SystemSampler
	}
	return &Collector{
		runs:           make(map[string]*run),
		updateInterval: interval,
		sample:         sampler,
	}
}

func (c *Collector) StartCollection(runID string) {
	r := &run{
		metrics: domain.ResourceMetrics{LastUpdated: time.Now()},
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}

	c.mu.Lock()
	old, exists := c.runs[runID]
	c.runs[runID] = r
	c.mu.Unlock()

	if exists {
		close(old.stop)
		<-old.done
	}

	// prime the CPU counter so the first tick has a baseline
	_, _, _ = c.sample()

	go c.collect(r)
}

// StopCollection ends sampling for runID and returns the final figures.
func (c *Collector) StopCollection(runID string) domain.ResourceMetrics {
	c.mu.Lock()
	r, exists := c.runs[runID]
	delete(c.runs, runID)
	c.mu.Unlock()

	if !exists {
		return domain.ResourceMetrics{}
	}
	close(r.stop)
	<-r.done

	c.record(r)
	return r.metrics
}

// GetMetrics returns a snapshot for a running collection, or nil.
func (c *Collector) GetMetrics(runID string) *domain.ResourceMetrics {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if r, exists := c.runs[runID]; exists {
		snapshot := r.metrics
		return &snapshot
	}
	return nil
}

func (c *Collector) collect(r *run) {
	defer close(r.done)

	ticker := time.NewTicker(c.updateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			c.record(r)
		}
	}
}

func (c *Collector) record(r *run) {
	cpuPct, memPct, err := c.sample()
	if err != nil {
		return
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	c.mu.Lock()
	defer c.mu.Unlock()

	r.metrics.Samples++
	r.cpuSum += cpuPct
	r.metrics.CPUAverage = r.cpuSum / float64(r.metrics.Samples)
	if cpuPct > r.metrics.CPUPeak {
		r.metrics.CPUPeak = cpuPct
	}
	if memPct > r.metrics.MemoryUsedPct {
		r.metrics.MemoryUsedPct = memPct
	}
	if heap := int64(m.HeapAlloc / 1024 / 1024); heap > r.metrics.HeapAllocMB {
		r.metrics.HeapAllocMB = heap
	}
	r.metrics.LastUpdated = time.Now()
}
