package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lblod/verenigingen-harvester/internal/sparql"
	"github.com/lblod/verenigingen-harvester/internal/support/exception"
)

// ErrTaskNotFound is returned when a task URI resolves to zero results.
var ErrTaskNotFound = errors.New("task not found")

// Task is one step of a Job as recorded in the ledger.
type Task struct {
	URI       string
	ID        string
	Job       string
	Status    Status
	Operation Operation
	Index     string
	Error     string
}

// LoadTask loads the task with the given URI. Zero matches yield
// ErrTaskNotFound; more than one match is an inconsistency and fails loud.
func (l *Ledger) LoadTask(ctx context.Context, subject string) (*Task, error) {
	query := fmt.Sprintf(`
  PREFIX mu: <http://mu.semte.ch/vocabularies/core/>
  PREFIX dct: <http://purl.org/dc/terms/>
  PREFIX adms: <http://www.w3.org/ns/adms#>
  PREFIX task: <http://redpencil.data.gift/vocabularies/tasks/>
  SELECT DISTINCT ?id ?job ?created ?modified ?status ?index ?operation ?error WHERE {
      GRAPH %s {
        %s a task:Task .
        %s dct:isPartOf ?job;
                      mu:uuid ?id;
                      dct:created ?created;
                      dct:modified ?modified;
                      adms:status ?status;
                      task:index ?index;
                      task:operation ?operation.
        OPTIONAL { %s task:error ?error. }
      }
    }`,
		sparql.EscapeURI(l.graph),
		sparql.EscapeURI(subject), sparql.EscapeURI(subject), sparql.EscapeURI(subject))

	results, err := l.client.Query(ctx, query)
	if err != nil {
		return nil, err
	}

	bindings := results.Results.Bindings
	switch len(bindings) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, subject)
	case 1:
		b := bindings[0]
		return &Task{
			URI:       subject,
			ID:        b["id"].Value,
			Job:       b["job"].Value,
			Status:    Status(b["status"].Value),
			Operation: Operation(b["operation"].Value),
			Index:     b["index"].Value,
			Error:     b["error"].Value,
		}, nil
	default:
		return nil, exception.Newf(moduleName, exception.KindDataShape,
			"unexpected result loading task %s: %d matches", subject, len(bindings))
	}
}

// UpdateTaskStatus replaces the status and modified triples of a task
// (delete-then-insert).
func (l *Ledger) UpdateTaskStatus(ctx context.Context, taskURI string, status Status) error {
	update := fmt.Sprintf(`
    PREFIX mu: <http://mu.semte.ch/vocabularies/core/>
    PREFIX adms: <http://www.w3.org/ns/adms#>
    PREFIX dct: <http://purl.org/dc/terms/>
    PREFIX task: <http://redpencil.data.gift/vocabularies/tasks/>
    DELETE {
      GRAPH %[1]s {
        %[2]s adms:status ?status .
        %[2]s dct:modified ?modified.
      }
    }
    INSERT {
      GRAPH %[1]s {
        %[2]s adms:status %[3]s.
        %[2]s dct:modified %[4]s.
      }
    }
    WHERE {
      GRAPH %[1]s {
        %[2]s a task:Task.
        %[2]s adms:status ?status .
        OPTIONAL { %[2]s dct:modified ?modified. }
      }
    }`,
		sparql.EscapeURI(l.graph),
		sparql.EscapeURI(taskURI),
		sparql.EscapeURI(string(status)),
		sparql.EscapeDateTime(time.Now()))

	return l.client.Update(ctx, update)
}

// RecordTaskError stores the error detail of a failed task.
func (l *Ledger) RecordTaskError(ctx context.Context, taskURI string, taskErr error) error {
	if taskErr == nil {
		return nil
	}
	update := fmt.Sprintf(`
    PREFIX task: <http://redpencil.data.gift/vocabularies/tasks/>
    INSERT DATA {
      GRAPH %s {
        %s task:error %s.
      }
    }`,
		sparql.EscapeURI(l.graph),
		sparql.EscapeURI(taskURI),
		sparql.EscapeString(exception.ExtractErrorMessage(taskErr)))
	return l.client.Update(ctx, update)
}

// CreateJob creates a new Job with status BUSY and returns its URI.
func (l *Ledger) CreateJob(ctx context.Context, operation Operation) (string, error) {
	jobID := newID()
	jobURI := ResourceBase + jobID
	created := sparql.EscapeDateTime(time.Now())

	update := fmt.Sprintf(`
    %s
    INSERT DATA {
      GRAPH %s {
        %s a %s;
            mu:uuid %s;
            dct:creator %s;
            adms:status %s;
            dct:created %s;
            dct:modified %s;
            task:operation %s.
      }
    }`,
		Prefixes,
		sparql.EscapeURI(l.graph),
		sparql.EscapeURI(jobURI),
		sparql.EscapeURI(JobType),
		sparql.EscapeString(jobID),
		sparql.EscapeURI(JobCreator),
		sparql.EscapeURI(string(StatusBusy)),
		created, created,
		sparql.EscapeURI(string(operation)))

	if err := l.client.Update(ctx, update); err != nil {
		return "", err
	}
	return jobURI, nil
}

// CreateTask schedules a new task under the given job and returns its URI.
func (l *Ledger) CreateTask(ctx context.Context, jobURI string, operation Operation, index string) (string, error) {
	taskID := newID()
	taskURI := ResourceBase + taskID
	created := sparql.EscapeDateTime(time.Now())

	update := fmt.Sprintf(`
    %s
    INSERT DATA {
      GRAPH %s {
          %s a %s;
              mu:uuid %s;
              adms:status %s;
              dct:created %s;
              dct:modified %s;
              task:operation %s;
              task:index %s;
              dct:isPartOf %s.
      }
    }`,
		Prefixes,
		sparql.EscapeURI(l.graph),
		sparql.EscapeURI(taskURI),
		sparql.EscapeURI(TaskType),
		sparql.EscapeString(taskID),
		sparql.EscapeURI(string(StatusBusy)),
		created, created,
		sparql.EscapeURI(string(operation)),
		sparql.EscapeString(index),
		sparql.EscapeURI(jobURI))

	if err := l.client.Update(ctx, update); err != nil {
		return "", err
	}
	return taskURI, nil
}

// AnyOtherHarvestJobsRunning reports whether a full or incremental harvest
// job is currently BUSY or SCHEDULED. The check is read-then-act and thus
// advisory; trigger sources are expected to be serialized in deployment.
func (l *Ledger) AnyOtherHarvestJobsRunning(ctx context.Context) (bool, error) {
	query := fmt.Sprintf(`
      %s
      ASK {
        VALUES ?operation {
         %s
         %s
        }
        VALUES ?status {
         %s
         %s
        }
        ?s a cogs:Job;
          task:operation ?operation;
          adms:status ?status .
      }`,
		Prefixes,
		sparql.EscapeURI(string(OperationFullHarvest)),
		sparql.EscapeURI(string(OperationIncrementalCollecting)),
		sparql.EscapeURI(string(StatusBusy)),
		sparql.EscapeURI(string(StatusScheduled)))

	return l.client.Ask(ctx, query)
}
