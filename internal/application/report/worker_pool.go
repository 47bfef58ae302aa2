package report

import (
	"context"
	"sync"

	"simpleit/simpledfe_core/internal/core/danfse"
	"simpleit/simpledfe_core/internal/core/documento"
)

// extractJob is one stored document queued for tax extraction.
type extractJob struct {
	Doc   documento.Documento
	Index int
}

// extractResult carries the taxes pulled from one document. Broken payloads
// produce zeroed taxes, never a failure.
type extractResult struct {
	Doc      documento.Documento
	Tributos danfse.Tributos
	Index    int
}

// extractPool fans document tax extraction out over a fixed set of workers.
// XML parsing dominates report latency on large date ranges.
type extractPool struct {
	workerCount int
	extract     func(raw string) danfse.Tributos
	jobChan     chan extractJob
	resultChan  chan extractResult
	wg          sync.WaitGroup
}

func newExtractPool(workerCount int, extract func(raw string) danfse.Tributos) *extractPool {
	if workerCount <= 0 {
		workerCount = 4
	}
	return &extractPool{
		workerCount: workerCount,
		extract:     extract,
		jobChan:     make(chan extractJob, workerCount*2),
		resultChan:  make(chan extractResult, workerCount*2),
	}
}

// run processes all documents and returns results in input order.
func (p *extractPool) run(ctx context.Context, docs []documento.Documento) []extractResult {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker()
	}

	go func() {
		defer close(p.jobChan)
		for i, d := range docs {
			select {
			case p.jobChan <- extractJob{Doc: d, Index: i}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		p.wg.Wait()
		close(p.resultChan)
	}()

	// On cancellation unprocessed slots stay zero-valued; the aggregator
	// skips entries without a document.
	ordered := make([]extractResult, len(docs))
	for res := range p.resultChan {
		ordered[res.Index] = res
	}
	return ordered
}

func (p *extractPool) worker() {
	defer p.wg.Done()
	for job := range p.jobChan {
		p.resultChan <- extractResult{
			Doc:      job.Doc,
			Tributos: p.extract(job.Doc.XMLBase64),
			Index:    job.Index,
		}
	}
}
