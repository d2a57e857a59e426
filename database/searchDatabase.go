package database

import (
	"os"
	"path/filepath"

	"github.com/blevesearch/bleve"
)

// SetupSearchDB sets up new bleve or opens existing. An empty path gives an
// in-memory index.
func SetupSearchDB(indexPath string) (bleve.Index, error) {
	Logger.Info("Creating bleve index mapping")
	mapping := bleve.NewIndexMapping()
	if indexPath == "" {
		Logger.Info("Creating in-memory bleve index")
		return bleve.NewMemOnly(mapping)
	}
	var index bleve.Index
	Logger.Info("Checking if bleve index exists", "path", indexPath)
	_, err := os.Stat(filepath.Clean(indexPath))
	if os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(indexPath), os.ModePerm); err != nil {
			return nil, err
		}
		Logger.Info("Creating new bleve index")
		index, err = bleve.New(filepath.Clean(indexPath), mapping)
		if err != nil {
			Logger.Error("Failed to create bleve index", "error", err)
			return index, err
		}
		Logger.Info("New bleve index created successfully")
	} else {
		Logger.Info("Opening existing bleve index")
		index, err = bleve.Open(filepath.Clean(indexPath))
		if err != nil {
			Logger.Error("Failed to open bleve index", "error", err)
			return index, err
		}
		Logger.Info("Existing bleve index opened successfully")
	}
	return index, nil
}
