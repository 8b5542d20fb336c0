package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lblod/verenigingen-harvester/internal/sparql"
)

// LogicalFile describes the abstract file resource registered in the ledger.
type LogicalFile struct {
	URI       string
	UUID      string
	Name      string
	Mimetype  string
	Created   time.Time
	Size      int64
	Extension string
	// DataSource is the RemoteDataObject this file was produced from.
	DataSource string
}

// PhysicalFile describes the bytes on the shared volume, addressed with a
// share:// URI.
type PhysicalFile struct {
	URI  string
	UUID string
	Name string
}

// SharedURIToPath converts a share:// URI into the path on the shared volume.
func SharedURIToPath(uri string) string {
	return strings.Replace(uri, "share://", "/share/", 1)
}

// PathToSharedURI converts a path on the shared volume into a share:// URI.
func PathToSharedURI(path string) string {
	return strings.Replace(path, "/share/", "share://", 1)
}

// RegisterFile registers the physical/logical file pair in the ledger, linked
// via nie:dataSource, and moves the data-source RemoteDataObject to COLLECTED
// in the same update.
func (l *Ledger) RegisterFile(ctx context.Context, file *LogicalFile, physical *PhysicalFile) error {
	update := fmt.Sprintf(`
%s
DELETE {
    GRAPH %[2]s {
      %[3]s adms:status ?status.
      %[3]s dct:modified ?modified .
    }
}
INSERT  {
    GRAPH %[2]s {
        %[4]s a nfo:FileDataObject ;
            mu:uuid %[5]s ;
            nfo:fileName %[6]s ;
            nie:dataSource %[3]s;
            ndo:copiedFrom %[3]s;
            dct:format %[7]s ;
            dct:created %[8]s ;
            nfo:fileSize %[9]s ;
            dbpedia:fileExtension %[10]s .
        %[3]s adms:status %[11]s.
        %[3]s dct:modified %[8]s.
        %[3]s a nfo:FileDataObject;
                         nfo:fileName %[6]s;
                         nfo:fileSize %[9]s.
    }
}
WHERE {
    GRAPH %[2]s {
      OPTIONAL { %[3]s adms:status ?status. }
      %[3]s dct:modified ?modified.
    }
}`,
		Prefixes,
		sparql.EscapeURI(l.graph),
		sparql.EscapeURI(file.DataSource),
		sparql.EscapeURI(physical.URI),
		sparql.EscapeString(physical.UUID),
		sparql.EscapeString(physical.Name),
		sparql.EscapeString(file.Mimetype),
		sparql.EscapeDateTime(file.Created),
		sparql.EscapeInt(file.Size),
		sparql.EscapeString(file.Extension),
		sparql.EscapeURI(string(FileStatusCollected)))

	return l.client.Update(ctx, update)
}

// RegisterLogicalFile registers a standalone logical/physical file pair that
// has no RemoteDataObject data source (the mutation-feed result file).
func (l *Ledger) RegisterLogicalFile(ctx context.Context, file *LogicalFile, physical *PhysicalFile) error {
	update := fmt.Sprintf(`
%s
INSERT DATA {
    GRAPH %s {
        %[3]s a nfo:FileDataObject ;
            mu:uuid %[4]s ;
            nfo:fileName %[5]s ;
            dct:format %[6]s ;
            dct:created %[7]s ;
            nfo:fileSize %[8]s ;
            dbpedia:fileExtension %[9]s .
        %[10]s a nfo:FileDataObject ;
            mu:uuid %[11]s ;
            nfo:fileName %[12]s ;
            nie:dataSource %[3]s ;
            ndo:copiedFrom %[3]s ;
            dct:format %[6]s ;
            dct:created %[7]s ;
            nfo:fileSize %[8]s ;
            dbpedia:fileExtension %[9]s .
    }
}`,
		Prefixes,
		sparql.EscapeURI(l.graph),
		sparql.EscapeURI(file.URI),
		sparql.EscapeString(file.UUID),
		sparql.EscapeString(file.Name),
		sparql.EscapeString(file.Mimetype),
		sparql.EscapeDateTime(file.Created),
		sparql.EscapeInt(file.Size),
		sparql.EscapeString(file.Extension),
		sparql.EscapeURI(physical.URI),
		sparql.EscapeString(physical.UUID),
		sparql.EscapeString(physical.Name))

	return l.client.Update(ctx, update)
}
