package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"agrochain/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingMinter struct {
	calls  int
	last   MintRequest
	result *MintResult
	err    error
}

func (m *countingMinter) Mint(_ context.Context, req MintRequest) (*MintResult, error) {
	m.calls++
	m.last = req
	if m.err != nil {
		return nil, m.err
	}
	if m.result != nil {
		return m.result, nil
	}
	return &MintResult{Success: true, TransactionHash: "0xfeed", MetadataURL: "https://meta/" + req.BatchCode}, nil
}

func readyResult() *models.ProcessingResult {
	r := models.NewProcessingResult("batch-1")
	r.QualityCheck = models.QualityCheck{Passed: true, Grade: "Grade A"}
	r.Sorting = models.Sorting{Completed: true, GradeA: 50, GradeB: 10}
	r.Packaging = models.Packaging{Completed: true, PackageType: "Crate", PackageCount: 5}
	return r
}

func TestResumeStep(t *testing.T) {
	w := NewWizard()

	fresh := models.NewProcessingResult("b")
	assert.Equal(t, StepQualityCheck, w.ResumeStep(nil))
	assert.Equal(t, StepQualityCheck, w.ResumeStep(fresh))

	passed := fresh.Clone()
	passed.QualityCheck.Passed = true
	assert.Equal(t, StepSorting, w.ResumeStep(passed))

	sorted := passed.Clone()
	sorted.Sorting.Completed = true
	assert.Equal(t, StepProcessing, w.ResumeStep(sorted))
	assert.Equal(t, w.ResumeStep(sorted), w.ResumeStep(sorted), "derivation is pure")

	skipped := sorted.Clone()
	skipped.Processing.Applicable = false
	assert.Equal(t, StepPackaging, w.ResumeStep(skipped))

	processed := sorted.Clone()
	processed.Processing.Completed = true
	assert.Equal(t, StepPackaging, w.ResumeStep(processed))

	assert.Equal(t, StepConfirmation, w.ResumeStep(readyResult()))
}

func TestStepNames(t *testing.T) {
	assert.Equal(t, "quality_check", StepQualityCheck.String())
	assert.Equal(t, "confirmation", StepConfirmation.String())
	assert.Equal(t, "step(9)", Step(9).String())
}

func TestCompleteGateNeverMints(t *testing.T) {
	w := NewWizard()
	m := &countingMinter{}

	for name, mutate := range map[string]func(r *models.ProcessingResult){
		"quality failed":   func(r *models.ProcessingResult) { r.QualityCheck.Passed = false },
		"sorting pending":  func(r *models.ProcessingResult) { r.Sorting.Completed = false },
		"packaging undone": func(r *models.ProcessingResult) { r.Packaging.Completed = false },
	} {
		r := readyResult()
		mutate(r)
		_, err := w.Complete(context.Background(), r, MintRequest{}, m)
		require.Error(t, err, name)
		assert.ErrorIs(t, err, ErrGate, name)
	}

	_, err := w.Complete(context.Background(), nil, MintRequest{}, m)
	assert.ErrorIs(t, err, ErrGate)
	assert.Zero(t, m.calls)
}

func TestValidateReportsFirstUnmetGate(t *testing.T) {
	w := NewWizard()
	r := readyResult()
	r.QualityCheck.Passed = false
	r.Sorting.Completed = false

	var gate *GateError
	require.ErrorAs(t, w.Validate(r), &gate)
	assert.Equal(t, StepQualityCheck, gate.Step)

	r.QualityCheck.Passed = true
	require.ErrorAs(t, w.Validate(r), &gate)
	assert.Equal(t, StepSorting, gate.Step)

	// processing never gates
	r = readyResult()
	r.Processing = models.Processing{Applicable: true, Completed: false}
	assert.NoError(t, w.Validate(r))
}

func TestCompleteSuccess(t *testing.T) {
	w := NewWizard()
	fixed := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return fixed }
	m := &countingMinter{}

	in := readyResult()
	done, err := w.Complete(context.Background(), in, MintRequest{BatchCode: "B-M0001"}, m)
	require.NoError(t, err)

	assert.Equal(t, 1, m.calls)
	assert.True(t, done.ReadyForDistribution)
	assert.True(t, done.NFTMinted)
	assert.Equal(t, "0xfeed", done.NFTTxHash)
	assert.Equal(t, "https://meta/B-M0001", done.MetadataURL)
	require.NotNil(t, done.CompletedAt)
	assert.Equal(t, fixed, *done.CompletedAt)
	assert.False(t, in.NFTMinted, "input is left untouched")

	_, err = w.Complete(context.Background(), done, MintRequest{}, m)
	assert.ErrorIs(t, err, ErrFinalized)
	assert.Equal(t, 1, m.calls)
}

func TestCompleteMintFailures(t *testing.T) {
	w := NewWizard()

	_, err := w.Complete(context.Background(), readyResult(), MintRequest{}, &countingMinter{err: errors.New("node down")})
	assert.ErrorIs(t, err, ErrMint)
	assert.Contains(t, err.Error(), "node down")

	_, err = w.Complete(context.Background(), readyResult(), MintRequest{}, &countingMinter{result: &MintResult{Success: false, Error: "quota exceeded"}})
	assert.ErrorIs(t, err, ErrMint)
	assert.Contains(t, err.Error(), "quota exceeded")
}

type memSaver struct {
	saved *models.ProcessingResult
	err   error
}

func (s *memSaver) SaveProcessingResult(_ context.Context, r *models.ProcessingResult) error {
	if s.err != nil {
		return s.err
	}
	s.saved = r
	return nil
}

func TestSaveIsVerbatim(t *testing.T) {
	w := NewWizard()
	saver := &memSaver{}
	r := models.NewProcessingResult("b")
	r.QualityCheck.Passed = false

	require.NoError(t, w.Save(context.Background(), r, saver))
	assert.Same(t, r, saver.saved)

	var verr *models.ValidationError
	assert.ErrorAs(t, w.Save(context.Background(), nil, saver), &verr)
	assert.Error(t, w.Save(context.Background(), r, &memSaver{err: errors.New("disk full")}))
}

func TestCatalogues(t *testing.T) {
	assert.Len(t, ProcessingMethods, 15)
	assert.Len(t, QualityGrades, 4)
	assert.True(t, ValidGrade("Premium"))
	assert.False(t, ValidGrade("Grade C"))
	assert.True(t, ValidMethod("Vacuum Sealing"))
	assert.False(t, ValidMethod("Smoking"))
	assert.True(t, ValidPackageType("Crate"))
	assert.False(t, ValidPackageType("Barrel"))
}
