package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/lblod/verenigingen-harvester/internal/sparql"
	"github.com/lblod/verenigingen-harvester/internal/support/exception"
)

// RemoteDataObject tracks one fetched-from-URL resource within a harvesting
// collection.
type RemoteDataObject struct {
	URI    string
	UUID   string
	URL    string
	Status FileStatus
}

// EnsureRemoteDataObject returns the RemoteDataObject for the given URL in
// the collection, creating it when no object with the normalized URL exists
// yet. The lookup-before-create makes repeated encounters of the same URL
// idempotent.
func (l *Ledger) EnsureRemoteDataObject(ctx context.Context, collectionURI, rawURL string) (*RemoteDataObject, error) {
	rdo, err := l.remoteDataObjectByURL(ctx, collectionURI, rawURL)
	if err != nil {
		return nil, err
	}
	if rdo != nil {
		return rdo, nil
	}
	return l.createRemoteDataObject(ctx, collectionURI, rawURL)
}

// remoteDataObjectByURL looks up a RemoteDataObject by its normalized URL.
// Returns nil when no object matches; more than one match fails loud.
func (l *Ledger) remoteDataObjectByURL(ctx context.Context, collectionURI, rawURL string) (*RemoteDataObject, error) {
	query := fmt.Sprintf(`
    %s
    SELECT DISTINCT ?dataObject ?uuid ?status
    WHERE {
      GRAPH %s {
        %s dct:hasPart ?dataObject.
        ?dataObject a nfo:RemoteDataObject;
             mu:uuid ?uuid;
             nie:url %s.
        OPTIONAL { ?dataObject adms:status ?status.}
      }
    }`,
		Prefixes,
		sparql.EscapeURI(l.graph),
		sparql.EscapeURI(collectionURI),
		sparql.EscapeURI(NormalizeURL(rawURL)))

	results, err := l.client.Query(ctx, query)
	if err != nil {
		return nil, err
	}

	bindings := results.Results.Bindings
	switch len(bindings) {
	case 0:
		return nil, nil
	case 1:
		b := bindings[0]
		return &RemoteDataObject{
			URI:    b["dataObject"].Value,
			UUID:   b["uuid"].Value,
			URL:    rawURL,
			Status: FileStatus(b["status"].Value),
		}, nil
	default:
		return nil, exception.Newf(moduleName, exception.KindDataShape,
			"unexpected result looking up remote data object for %s: %d matches", rawURL, len(bindings))
	}
}

// createRemoteDataObject inserts a new RemoteDataObject in READY state.
func (l *Ledger) createRemoteDataObject(ctx context.Context, collectionURI, rawURL string) (*RemoteDataObject, error) {
	id := newID()
	uri := ResourceBase + "remote-data-objects/" + id
	created := sparql.EscapeDateTime(time.Now())

	update := fmt.Sprintf(`
    %s
    INSERT DATA {
      GRAPH %s {
        %s dct:hasPart %s.
        %s a nfo:RemoteDataObject .
        %s mu:uuid %s;
             nie:url %s;
             dct:created %s;
             dct:creator %s;
             dct:modified %s;
             adms:status %s.
      }
    }`,
		Prefixes,
		sparql.EscapeURI(l.graph),
		sparql.EscapeURI(collectionURI), sparql.EscapeURI(uri),
		sparql.EscapeURI(uri),
		sparql.EscapeURI(uri),
		sparql.EscapeString(id),
		sparql.EscapeURI(NormalizeURL(rawURL)),
		created,
		sparql.EscapeURI(ScraperService),
		created,
		sparql.EscapeURI(string(FileStatusReady)))

	if err := l.client.Update(ctx, update); err != nil {
		return nil, err
	}
	return &RemoteDataObject{
		URI:    uri,
		UUID:   id,
		URL:    rawURL,
		Status: FileStatusReady,
	}, nil
}

// InitialRemoteDataObject returns the single RemoteDataObject of a fresh
// harvesting collection. Any other cardinality is an inconsistency.
func (l *Ledger) InitialRemoteDataObject(ctx context.Context, collectionURI string) (*RemoteDataObject, error) {
	query := fmt.Sprintf(`
    %s
    SELECT DISTINCT ?dataObject ?url ?uuid ?status
    WHERE {
      GRAPH %s {
        %s dct:hasPart ?dataObject.
        ?dataObject a nfo:RemoteDataObject;
             mu:uuid ?uuid;
             nie:url ?url.
      }
    }`,
		Prefixes,
		sparql.EscapeURI(l.graph),
		sparql.EscapeURI(collectionURI))

	results, err := l.client.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	bindings := results.Results.Bindings
	if len(bindings) != 1 {
		return nil, exception.Newf(moduleName, exception.KindDataShape,
			"expected exactly one remote data object in collection %s, found %d", collectionURI, len(bindings))
	}
	b := bindings[0]
	return &RemoteDataObject{
		URI:  b["dataObject"].Value,
		UUID: b["uuid"].Value,
		URL:  b["url"].Value,
	}, nil
}

// HarvestCollectionForTask resolves the harvesting collection linked to the
// task through its input container.
func (l *Ledger) HarvestCollectionForTask(ctx context.Context, taskURI string) (string, error) {
	query := fmt.Sprintf(`
    PREFIX tasks: <http://redpencil.data.gift/vocabularies/tasks/>
    SELECT ?collection
    WHERE {
      GRAPH %s  {
        %s tasks:inputContainer ?inputContainer.
        ?inputContainer tasks:hasHarvestingCollection ?collection.
      }
    }`,
		sparql.EscapeURI(l.graph),
		sparql.EscapeURI(taskURI))

	results, err := l.client.Query(ctx, query)
	if err != nil {
		return "", err
	}
	bindings := results.Results.Bindings
	if len(bindings) != 1 {
		return "", exception.Newf(moduleName, exception.KindDataShape,
			"expected exactly one harvesting collection for task %s, found %d", taskURI, len(bindings))
	}
	return bindings[0]["collection"].Value, nil
}

// CollectionHasCollectedFiles reports whether the collection holds at least
// one RemoteDataObject in COLLECTED state.
func (l *Ledger) CollectionHasCollectedFiles(ctx context.Context, collectionURI string) (bool, error) {
	query := fmt.Sprintf(`
    PREFIX    dct: <http://purl.org/dc/terms/>
    PREFIX    adms: <http://www.w3.org/ns/adms#>
    ASK { GRAPH %s {
      %s dct:hasPart ?remoteDataObject.
      ?remoteDataObject adms:status %s
    }}`,
		sparql.EscapeURI(l.graph),
		sparql.EscapeURI(collectionURI),
		sparql.EscapeURI(string(FileStatusCollected)))

	return l.client.Ask(ctx, query)
}

// CreateResultsContainerForCollection links a results container holding all
// COLLECTED remote data objects of the task's harvesting collection.
func (l *Ledger) CreateResultsContainerForCollection(ctx context.Context, taskURI, collectionURI string) (string, error) {
	id := newID()
	uri := ResourceBase + "data-containers/" + id

	update := fmt.Sprintf(`
      %s
      INSERT {
        GRAPH %[2]s {
          %[3]s task:resultsContainer %[4]s.
          %[4]s a nfo:DataContainer;
                            mu:uuid %[5]s;
                            task:hasFile ?rdo.
        }
      }
      WHERE {
        GRAPH %[2]s {
          %[3]s a task:Task;
                task:inputContainer ?container.
          ?container task:hasHarvestingCollection %[6]s.
          %[6]s dct:hasPart ?rdo.
          ?rdo adms:status %[7]s.
        }
      }`,
		Prefixes,
		sparql.EscapeURI(l.graph),
		sparql.EscapeURI(taskURI),
		sparql.EscapeURI(uri),
		sparql.EscapeString(id),
		sparql.EscapeURI(collectionURI),
		sparql.EscapeURI(string(FileStatusCollected)))

	if err := l.client.Update(ctx, update); err != nil {
		return "", err
	}
	return uri, nil
}

// CreateResultsContainerForFile links a results container holding a single
// logical file to the task.
func (l *Ledger) CreateResultsContainerForFile(ctx context.Context, taskURI, logicalFileURI string) (string, error) {
	id := newID()
	uri := ResourceBase + "data-containers/" + id

	update := fmt.Sprintf(`
      %s
      INSERT DATA {
        GRAPH %s {
          %s task:resultsContainer %s.
          %s a nfo:DataContainer;
                            mu:uuid %s;
                            task:hasFile %s.
        }
      }`,
		Prefixes,
		sparql.EscapeURI(l.graph),
		sparql.EscapeURI(taskURI), sparql.EscapeURI(uri),
		sparql.EscapeURI(uri),
		sparql.EscapeString(id),
		sparql.EscapeURI(logicalFileURI))

	if err := l.client.Update(ctx, update); err != nil {
		return "", err
	}
	return uri, nil
}
