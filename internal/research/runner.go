package research

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/safescan/internal/model"
)

// runner owns one job's authoritative record and is its only writer.
type runner struct {
	o   *Orchestrator
	job *model.ResearchJob
	req model.ResearchRequest
	log *zap.Logger
}

func (r *runner) run() {
	defer r.o.wg.Done()
	r.log = zap.L().With(zap.String("job_id", r.job.ID))
	ctx := r.o.baseCtx

	if err := r.o.sem.Acquire(ctx, 1); err != nil {
		r.fail(eris.Wrap(context.Cause(ctx), "research: waiting for a runner slot"))
		return
	}
	defer r.o.sem.Release(1)

	d := newDossier(r.req)
	for _, stage := range Stages {
		if err := context.Cause(ctx); err != nil {
			r.fail(eris.Wrapf(err, "research: cancelled before %s", stage.Name))
			return
		}
		if err := r.advance(ctx, stage); err != nil {
			r.fail(err)
			return
		}
		if err := r.execute(ctx, stage, d); err != nil {
			r.fail(err)
			return
		}
	}
}

func (r *runner) advance(ctx context.Context, stage Stage) error {
	if err := r.job.Advance(stage.Progress, stage.Step); err != nil {
		return err
	}
	r.log.Debug("research: stage started",
		zap.String("stage", stage.Name),
		zap.Int("progress", stage.Progress),
	)
	return eris.Wrapf(r.o.store.Put(ctx, r.job), "research: persist %s", stage.Name)
}

func (r *runner) execute(ctx context.Context, stage Stage, d *dossier) error {
	switch stage.Name {
	case StagePreparation:
		r.req.Ingredients = model.CleanIngredients(r.req.Ingredients)
		d.req = r.req
	case StageIngredients:
		score, err := r.o.engine.Score(r.req.ScanRequest())
		if err != nil {
			return eris.Wrap(err, "research: score ingredients")
		}
		d.score = score
		d.add("Ingredient analysis", scoreFindings(score)...)
	case StageCorporate:
		d.add("Corporate ownership", corporateFindings(d.score)...)
	case StageSupplyChain:
		d.add("Supply chain", supplyFindings(d.score)...)
	case StageRegulatory:
		d.add("Regulatory flags", regulatoryFindings(d.score)...)
	case StageAlternatives:
		d.add("Alternatives", alternativeFindings(d.score)...)
	case StageRecommendation:
		return r.synthesize(ctx, d)
	}
	return nil
}

// synthesize makes the job's single generation call and completes the job.
func (r *runner) synthesize(ctx context.Context, d *dossier) error {
	if r.o.generator == nil {
		return ErrGeneratorUnavailable
	}
	prompt := d.Prompt()
	text, err := retryGenerate(ctx, r.o.retry, r.job.ID, func(ctx context.Context) (string, error) {
		if err := r.o.limiter.Wait(ctx); err != nil {
			return "", eris.Wrap(err, "research: rate limit wait")
		}
		genCtx, cancel := context.WithTimeout(ctx, r.o.timeout)
		defer cancel()
		return r.o.generator.Generate(genCtx, SystemPrompt, prompt)
	})
	if err != nil {
		return err
	}
	sections, err := ParseReport(text)
	if err != nil {
		return err
	}

	report := &model.ResearchReport{
		ProductName: r.req.ProductName,
		Brand:       r.req.Brand,
		Category:    r.req.Category,
		Sections:    sections,
		FullText:    text,
		GeneratedAt: r.o.nowFunc().UTC(),
	}
	// The record only becomes terminal once the completed copy is stored, so a
	// failed write can still be recorded as a failure.
	done := r.job.Clone()
	if err := done.Complete(report, r.o.nowFunc()); err != nil {
		return err
	}
	if err := r.o.store.Put(context.WithoutCancel(ctx), done); err != nil {
		return eris.Wrap(err, "research: persist completed job")
	}
	r.job = done
	r.log.Info("research: job completed", zap.Int("report_chars", len(text)))
	return nil
}

// fail records err on the job. The terminal write ignores cancellation so a
// shutdown still leaves a failed record behind.
func (r *runner) fail(err error) {
	if ferr := r.job.Fail(err.Error(), r.o.nowFunc()); ferr != nil {
		r.log.Error("research: fail terminal job", zap.Error(ferr))
		return
	}
	r.log.Warn("research: job failed", zap.Int("progress", r.job.Progress), zap.Error(err))
	if perr := r.o.store.Put(context.WithoutCancel(r.o.baseCtx), r.job); perr != nil {
		r.log.Error("research: persist failed job", zap.Error(perr))
	}
}
