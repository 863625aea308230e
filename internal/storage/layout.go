package storage

import (
	"fmt"
	"path"
	"strings"
)

// Key layout under the configured prefix. Training tuples live under train/,
// inference tuples under infer/, model artifacts under output/, and run
// summaries under runs/.
const (
	TrainDir  = "train"
	InferDir  = "infer"
	OutputDir = "output"
	RunsDir   = "runs"
)

func TrainPrefix(prefix string) string  { return path.Join(prefix, TrainDir) + "/" }
func InferPrefix(prefix string) string  { return path.Join(prefix, InferDir) + "/" }
func OutputPrefix(prefix string) string { return path.Join(prefix, OutputDir) + "/" }

func RunReportKey(prefix, runId string) string {
	return path.Join(prefix, RunsDir, runId+".json")
}

func S3URI(bucket, key string) string {
	return fmt.Sprintf("s3://%s/%s", bucket, key)
}

// FirstCSV returns the first .csv object under a prefix, in listing order.
func FirstCSV(objects []Object) (Object, bool) {
	for _, obj := range objects {
		if strings.HasSuffix(obj.Name, ".csv") {
			return obj, true
		}
	}
	return Object{}, false
}
