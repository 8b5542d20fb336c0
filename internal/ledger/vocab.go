// Package ledger implements the job/task administration kept in the
// triplestore: Jobs, Tasks, harvesting collections with their remote data
// objects, result containers, registered files and the mutation-feed cursor.
// Only the orchestrator mutates task status; the fetch layers return tagged
// results and never touch the ledger themselves.
package ledger

// Resource and vocabulary URIs of the job/task administration.
const (
	ResourceBase = "http://data.lblod.info/id/"

	JobType  = "http://vocab.deri.ie/cogs#Job"
	TaskType = "http://redpencil.data.gift/vocabularies/tasks/Task"

	JobCreator     = "http://data.lblod.info/creator/verenigingen-scraper-service"
	ScraperService = "http://lblod.data.gift/services/scraper"

	CursorType              = "http://data.lblod.info/vocabularies/FeitelijkeVerenigingen/MutatiedienstStateInfo"
	CursorSequencePredicate = "http://data.lblod.info/vocabularies/FeitelijkeVerenigingen/lastSequenceMutatiedienst"
)

// Status is the lifecycle status URI of a Job or Task.
type Status string

const (
	StatusBusy      Status = "http://redpencil.data.gift/id/concept/JobStatus/busy"
	StatusScheduled Status = "http://redpencil.data.gift/id/concept/JobStatus/scheduled"
	StatusSuccess   Status = "http://redpencil.data.gift/id/concept/JobStatus/success"
	StatusFailed    Status = "http://redpencil.data.gift/id/concept/JobStatus/failed"
)

// FileStatus is the download status URI of a RemoteDataObject.
type FileStatus string

const (
	FileStatusReady     FileStatus = "http://lblod.data.gift/file-download-statuses/ready-to-be-cached"
	FileStatusOngoing   FileStatus = "http://lblod.data.gift/file-download-statuses/ongoing"
	FileStatusCollected FileStatus = "http://lblod.data.gift/file-download-statuses/collected"
	FileStatusFailure   FileStatus = "http://lblod.data.gift/file-download-statuses/failure"
)

// Operation identifies the job or task operation type.
type Operation string

const (
	OperationCollecting Operation = "http://lblod.data.gift/id/jobs/concept/TaskOperation/collecting"
	// OperationFullHarvest is the job operation of the full harvest.
	OperationFullHarvest Operation = "http://lblod.data.gift/id/jobs/concept/JobOperation/lblodHarvesting"
	// OperationIncrementalCollecting is the job operation of the mutation-feed run.
	OperationIncrementalCollecting Operation = "http://lblod.data.gift/id/jobs/concept/JobOperation/incrementalCollecting"
	// OperationMutationCollecting is the task operation of the mutation-feed run.
	OperationMutationCollecting Operation = "http://lblod.data.gift/id/jobs/concept/TaskOperation/mutatieDienstCollecting"
)

// Prefixes is prepended to every ledger query and update.
const Prefixes = `
   PREFIX mu: <http://mu.semte.ch/vocabularies/core/>
   PREFIX dct: <http://purl.org/dc/terms/>
   PREFIX adms: <http://www.w3.org/ns/adms#>
   PREFIX task: <http://redpencil.data.gift/vocabularies/tasks/>
   PREFIX nie: <http://www.semanticdesktop.org/ontologies/2007/01/19/nie#>
   PREFIX nfo: <http://www.semanticdesktop.org/ontologies/2007/03/22/nfo#>
   PREFIX nuao: <http://www.semanticdesktop.org/ontologies/2010/01/25/nuao#>
   PREFIX dbpedia: <http://dbpedia.org/ontology/>
   PREFIX ndo: <http://oscaf.sourceforge.net/ndo.html#>
   PREFIX cogs: <http://vocab.deri.ie/cogs#>
`
