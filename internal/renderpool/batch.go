package renderpool

import (
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/google/uuid"

	"github.com/FjamZoo/clothing-tool/internal/imageproc"
	"github.com/FjamZoo/clothing-tool/internal/logger"
)

// BatchItem is one asset to preview: a texture dictionary, the drawable
// it dresses, and where the finished preview goes.
type BatchItem struct {
	Key           string
	TexturePath   string
	ModelPath     string
	FallbackModel string
	Category      string
	OutputPath    string
}

// RenderBatch previews a batch of items in two strictly sequential
// phases. Phase 1 pre-extracts DDS textures per item with bounded
// parallelism so workers never decode containers themselves; items whose
// extraction reveals a placeholder (or fails) are resolved immediately.
// Phase 2 feeds the survivors through the persistent worker pool. No
// render job starts before all pre-extraction has finished.
func RenderBatch(items []BatchItem, cfg Config, log logger.Logger) []Result {
	if log == nil {
		log = logger.Default()
	}
	if len(items) == 0 {
		return nil
	}

	scratch := filepath.Join(os.TempDir(), "clothing-pool-"+uuid.NewString())
	defer func() { _ = os.RemoveAll(scratch) }()

	log.Info("pre-extracting textures", "items", len(items))

	extractedItems := make([]extracted, len(items))
	var wg sync.WaitGroup
	sem := make(chan struct{}, min(runtime.GOMAXPROCS(0), len(items)))
	for i := range items {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			extractedItems[i] = preExtract(items[i], scratch, log)
		}(i)
	}
	wg.Wait()

	var results []Result
	var jobs []Job
	for _, ex := range extractedItems {
		job := jobFromItem(ex.item, ex.texturePaths, ex.info)
		switch {
		case ex.err != nil:
			results = append(results, failure(job, ex.err.Error()))
		case ex.placeholder:
			// Invisible variant: emit a fully transparent preview.
			if err := imageproc.WriteBlank(ex.item.OutputPath, cfg.OutputSize); err != nil {
				results = append(results, failure(job, err.Error()))
				break
			}
			results = append(results, success(job))
		default:
			jobs = append(jobs, job)
		}
	}

	log.Info("pre-extraction done",
		"renderable", len(jobs),
		"resolved_early", len(results))

	if len(jobs) == 0 {
		return results
	}

	renderDir := filepath.Join(scratch, "renders")
	if err := os.MkdirAll(renderDir, 0o755); err != nil {
		for _, job := range jobs {
			results = append(results, failure(job, err.Error()))
		}
		return results
	}
	for i := range jobs {
		jobs[i].RenderPath = filepath.Join(renderDir, jobs[i].Key+".png")
	}

	post := func(job Job, renderPath string) error {
		return imageproc.Finish(renderPath, job.OutputPath, cfg.OutputSize)
	}
	pool := NewPool(cfg, post, log)
	return append(results, pool.Run(jobs)...)
}

func jobFromItem(item BatchItem, texturePaths []string, info TextureInfo) Job {
	return Job{
		Key:           item.Key,
		ModelPath:     item.ModelPath,
		TexturePaths:  texturePaths,
		FallbackModel: item.FallbackModel,
		Category:      item.Category,
		OutputPath:    item.OutputPath,
		Texture:       info,
	}
}
