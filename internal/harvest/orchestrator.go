// Package harvest contains the orchestrator driving a harvest run: claiming
// the task, fanning out the fetch phases, transforming and persisting the
// result, and closing the task in the ledger. The orchestrator is the only
// component that mutates task status; the fetch layers only return tagged
// results.
package harvest

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/lblod/verenigingen-harvester/internal/config"
	"github.com/lblod/verenigingen-harvester/internal/fanout"
	"github.com/lblod/verenigingen-harvester/internal/ledger"
	"github.com/lblod/verenigingen-harvester/internal/registry"
	"github.com/lblod/verenigingen-harvester/internal/support/exception"
	"github.com/lblod/verenigingen-harvester/internal/support/logger"
	"github.com/lblod/verenigingen-harvester/internal/transform"
)

// Ledger is the job/task administration the orchestrator drives.
type Ledger interface {
	LoadTask(ctx context.Context, uri string) (*ledger.Task, error)
	UpdateTaskStatus(ctx context.Context, taskURI string, status ledger.Status) error
	RecordTaskError(ctx context.Context, taskURI string, taskErr error) error
	CreateJob(ctx context.Context, operation ledger.Operation) (string, error)
	CreateTask(ctx context.Context, jobURI string, operation ledger.Operation, index string) (string, error)
	AnyOtherHarvestJobsRunning(ctx context.Context) (bool, error)
	HarvestCollectionForTask(ctx context.Context, taskURI string) (string, error)
	InitialRemoteDataObject(ctx context.Context, collectionURI string) (*ledger.RemoteDataObject, error)
	CollectionHasCollectedFiles(ctx context.Context, collectionURI string) (bool, error)
	CreateResultsContainerForCollection(ctx context.Context, taskURI, collectionURI string) (string, error)
	CreateResultsContainerForFile(ctx context.Context, taskURI, logicalFileURI string) (string, error)
	RegisterFile(ctx context.Context, file *ledger.LogicalFile, physical *ledger.PhysicalFile) error
	RegisterLogicalFile(ctx context.Context, file *ledger.LogicalFile, physical *ledger.PhysicalFile) error
	LoadCursor(ctx context.Context) (*ledger.Cursor, error)
	AdvanceCursor(ctx context.Context, subject string, sequence int64) error
}

// Registry is the upstream API surface the orchestrator consumes.
type Registry interface {
	FetchAllCodes(ctx context.Context, token, postalCode string) ([]string, error)
	FetchDetail(ctx context.Context, token, vCode string) (*registry.DetailResult, error)
	FetchChangesSince(ctx context.Context, token string, since int64) ([]registry.MutationEvent, error)
	FetchContext(ctx context.Context) (map[string]interface{}, error)
	SearchURL() string
	MutationFeedURL() string
}

// FileStore persists result documents on the shared volume.
type FileStore interface {
	SaveJSON(content []byte) (*Artifact, error)
}

// RunRecorder observes completed harvest runs; implemented by the metrics
// recorder. A nil recorder disables observation.
type RunRecorder interface {
	ObserveRun(operation string, succeeded bool, duration time.Duration)
}

// logicalFileBase is the URI namespace of registered logical files.
const logicalFileBase = "http://data.lblod.info/files/"

// Orchestrator coordinates full and incremental harvest runs.
type Orchestrator struct {
	ledger      Ledger
	registry    Registry
	tokens      registry.TokenProvider
	store       FileStore
	transformer *transform.Transformer
	recorder    RunRecorder
	postalCodes []string
	parallelism int
}

// New creates an Orchestrator. The recorder may be nil.
func New(cfg *config.Config, ldg Ledger, reg Registry, tokens registry.TokenProvider,
	store FileStore, transformer *transform.Transformer, recorder RunRecorder) *Orchestrator {
	return &Orchestrator{
		ledger:      ldg,
		registry:    reg,
		tokens:      tokens,
		store:       store,
		transformer: transformer,
		recorder:    recorder,
		postalCodes: cfg.Harvester.Registry.PostalCodes,
		parallelism: cfg.Harvester.Registry.MaxParallelism,
	}
}

func (o *Orchestrator) observe(operation string, succeeded bool, start time.Time) {
	if o.recorder != nil {
		o.recorder.ObserveRun(operation, succeeded, time.Since(start))
	}
}

// RunCollectingTask executes the full harvest for a scheduled collecting
// task. Unknown task URIs and tasks with a different operation are logged
// and skipped; they never surface as errors to the trigger source.
func (o *Orchestrator) RunCollectingTask(ctx context.Context, taskURI string) error {
	task, err := o.ledger.LoadTask(ctx, taskURI)
	if err != nil {
		if errors.Is(err, ledger.ErrTaskNotFound) {
			logger.Warnf("Received delta for unknown task %s, ignoring", taskURI)
			return nil
		}
		return err
	}
	if task.Operation != ledger.OperationCollecting {
		logger.Debugf("Task %s has operation %s, not a collecting task, ignoring", taskURI, task.Operation)
		return nil
	}

	start := time.Now()
	if err := o.ledger.UpdateTaskStatus(ctx, taskURI, ledger.StatusBusy); err != nil {
		return err
	}

	if err := o.collectForTask(ctx, task); err != nil {
		logger.Errorf("Full harvest failed for task %s: %v", taskURI, err)
		o.failTask(ctx, taskURI, err)
		o.observe("collecting", false, start)
		return err
	}
	o.observe("collecting", true, start)
	return nil
}

func (o *Orchestrator) collectForTask(ctx context.Context, task *ledger.Task) error {
	collection, err := o.ledger.HarvestCollectionForTask(ctx, task.URI)
	if err != nil {
		return err
	}
	rdo, err := o.ledger.InitialRemoteDataObject(ctx, collection)
	if err != nil {
		return err
	}

	token, err := o.tokens.Acquire(ctx)
	if err != nil {
		return err
	}

	vCodes, err := o.fetchAllVCodes(ctx, token)
	if err != nil {
		return err
	}
	logger.Infof("Full harvest gathered %d distinct vCodes over %d postal codes", len(vCodes), len(o.postalCodes))

	records, err := o.fetchDetails(ctx, token, vCodes)
	if err != nil {
		return err
	}

	doc, err := o.buildDocument(ctx, records, o.registry.SearchURL(), nil)
	if err != nil {
		return err
	}

	artifact, err := o.store.SaveJSON(doc)
	if err != nil {
		return err
	}

	logical, physical := artifactResources(artifact, rdo.URI)
	if err := o.ledger.RegisterFile(ctx, logical, physical); err != nil {
		return err
	}

	collected, err := o.ledger.CollectionHasCollectedFiles(ctx, collection)
	if err != nil {
		return err
	}
	if !collected {
		return exception.Newf("orchestrator", exception.KindLedgerWrite,
			"collection %s closed without collected files", collection)
	}
	if _, err := o.ledger.CreateResultsContainerForCollection(ctx, task.URI, collection); err != nil {
		return err
	}
	return o.ledger.UpdateTaskStatus(ctx, task.URI, ledger.StatusSuccess)
}

// RunIncremental executes one mutation-feed tick. The run is skipped, without
// creating a job or task, when another harvest job is active, when no cursor
// exists yet, or when the feed reports no changes.
func (o *Orchestrator) RunIncremental(ctx context.Context) error {
	running, err := o.ledger.AnyOtherHarvestJobsRunning(ctx)
	if err != nil {
		return err
	}
	if running {
		logger.Warnf("Other harvest jobs are running that might affect the mutation run. Skipping...")
		return nil
	}

	cursor, err := o.ledger.LoadCursor(ctx)
	if err != nil {
		return err
	}
	if cursor == nil {
		logger.Infof("No mutation cursor found; an initial full sync hasn't happened yet. Skipping iteration.")
		return nil
	}

	token, err := o.tokens.Acquire(ctx)
	if err != nil {
		return err
	}

	events, err := o.registry.FetchChangesSince(ctx, token, cursor.Since)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		logger.Infof("No changes found since sequence %d. Skipping", cursor.Since)
		return nil
	}

	// The feed is ordered ascending by sequence.
	lastSequence := events[len(events)-1].Sequence
	vCodes := distinctVCodes(events)
	logger.Infof("Mutation feed returned %d events (%d distinct vCodes), last sequence %d",
		len(events), len(vCodes), lastSequence)

	start := time.Now()
	jobURI, err := o.ledger.CreateJob(ctx, ledger.OperationIncrementalCollecting)
	if err != nil {
		return err
	}
	taskURI, err := o.ledger.CreateTask(ctx, jobURI, ledger.OperationMutationCollecting, "0")
	if err != nil {
		return err
	}

	if err := o.collectIncremental(ctx, taskURI, token, vCodes, cursor, lastSequence); err != nil {
		logger.Errorf("An error occurred during the execution of the mutation pipeline.")
		logger.Errorf("TASK: %s", taskURI)
		logger.Errorf("ERROR: %v", err)
		o.failTask(ctx, taskURI, err)
		o.observe("incremental", false, start)
		return err
	}
	o.observe("incremental", true, start)
	return nil
}

func (o *Orchestrator) collectIncremental(ctx context.Context, taskURI, token string,
	vCodes []string, cursor *ledger.Cursor, lastSequence int64) error {
	records, err := o.fetchDetails(ctx, token, vCodes)
	if err != nil {
		return err
	}

	// The cursor patch travels inside the result document so the downstream
	// import reproduces the new sequence number in the application graph.
	cursorPatch := map[string]interface{}{
		"@id":                       cursor.Subject,
		"lastSequenceMutatiedienst": lastSequence,
	}
	doc, err := o.buildDocument(ctx, records, o.registry.MutationFeedURL(), cursorPatch)
	if err != nil {
		return err
	}

	artifact, err := o.store.SaveJSON(doc)
	if err != nil {
		return err
	}

	logical, physical := artifactResources(artifact, "")
	if err := o.ledger.RegisterLogicalFile(ctx, logical, physical); err != nil {
		return err
	}
	if _, err := o.ledger.CreateResultsContainerForFile(ctx, taskURI, logical.URI); err != nil {
		return err
	}

	// The cursor only moves once the result file is durably recorded, so a
	// crash mid-run re-consumes rather than skips changes.
	if err := o.ledger.AdvanceCursor(ctx, cursor.Subject, lastSequence); err != nil {
		return err
	}
	return o.ledger.UpdateTaskStatus(ctx, taskURI, ledger.StatusSuccess)
}

// fetchAllVCodes fans out the paginated search over the postal-code
// partitions and returns the distinct vCodes in partition order.
func (o *Orchestrator) fetchAllVCodes(ctx context.Context, token string) ([]string, error) {
	perPartition, err := fanout.Map(ctx, o.postalCodes, o.parallelism,
		func(ctx context.Context, postalCode string) ([]string, error) {
			return o.registry.FetchAllCodes(ctx, token, postalCode)
		})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var vCodes []string
	for _, partition := range perPartition {
		for _, vCode := range partition {
			if _, dup := seen[vCode]; dup {
				continue
			}
			seen[vCode] = struct{}{}
			vCodes = append(vCodes, vCode)
		}
	}
	return vCodes, nil
}

// fetchDetails fans out the detail fetch and drops removed associations.
func (o *Orchestrator) fetchDetails(ctx context.Context, token string, vCodes []string) ([]map[string]interface{}, error) {
	results, err := fanout.Map(ctx, vCodes, o.parallelism,
		func(ctx context.Context, vCode string) (*registry.DetailResult, error) {
			return o.registry.FetchDetail(ctx, token, vCode)
		})
	if err != nil {
		return nil, err
	}

	records := make([]map[string]interface{}, 0, len(results))
	for _, r := range results {
		if r.Removed {
			logger.Infof("Association %s was removed upstream, skipping", r.VCode)
			continue
		}
		records = append(records, r.Association)
	}
	return records, nil
}

// buildDocument assembles the persisted JSON document: the extended JSON-LD
// context, the transformed records and the source URL. The optional extra
// entry is appended to the record list.
func (o *Orchestrator) buildDocument(ctx context.Context, records []map[string]interface{},
	sourceURL string, extra map[string]interface{}) ([]byte, error) {
	contextDoc, err := o.registry.FetchContext(ctx)
	if err != nil {
		return nil, err
	}

	transformed := o.transformer.Transform(records)
	verenigingen := make([]interface{}, 0, len(transformed)+1)
	for _, r := range transformed {
		verenigingen = append(verenigingen, r)
	}
	if extra != nil {
		verenigingen = append(verenigingen, extra)
	}

	doc := map[string]interface{}{
		"@context":     contextDoc,
		"verenigingen": verenigingen,
		"url":          sourceURL,
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return nil, exception.New("orchestrator", "failed to encode result document", err, exception.KindDataShape)
	}
	return payload, nil
}

// failTask marks the task FAILED and records the error detail. Both writes
// are best effort; the original error is what the caller reports.
func (o *Orchestrator) failTask(ctx context.Context, taskURI string, taskErr error) {
	if err := o.ledger.UpdateTaskStatus(ctx, taskURI, ledger.StatusFailed); err != nil {
		logger.Errorf("Failed to mark task %s as failed: %v", taskURI, err)
	}
	if err := o.ledger.RecordTaskError(ctx, taskURI, taskErr); err != nil {
		logger.Errorf("Failed to record error for task %s: %v", taskURI, err)
	}
}

// artifactResources builds the logical/physical file pair for a stored
// artifact. dataSource may be empty for files without a RemoteDataObject.
func artifactResources(artifact *Artifact, dataSource string) (*ledger.LogicalFile, *ledger.PhysicalFile) {
	logicalID := uuid.NewString()
	logical := &ledger.LogicalFile{
		URI:        logicalFileBase + logicalID,
		UUID:       logicalID,
		Name:       logicalID + "." + artifact.Extension,
		Mimetype:   artifact.Format,
		Created:    artifact.Created,
		Size:       artifact.Size,
		Extension:  artifact.Extension,
		DataSource: dataSource,
	}
	physical := &ledger.PhysicalFile{
		URI:  artifact.PhysicalURI,
		UUID: artifact.UUID,
		Name: artifact.PhysicalName,
	}
	return logical, physical
}

// distinctVCodes extracts the distinct vCodes of a mutation batch, first
// occurrence order preserved.
func distinctVCodes(events []registry.MutationEvent) []string {
	seen := make(map[string]struct{}, len(events))
	var vCodes []string
	for _, e := range events {
		if _, dup := seen[e.VCode]; dup {
			continue
		}
		seen[e.VCode] = struct{}{}
		vCodes = append(vCodes, e.VCode)
	}
	return vCodes
}
