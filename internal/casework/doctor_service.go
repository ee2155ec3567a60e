package casework

import (
	"context"
	"io"

	"github.com/colonyops/casetrack/internal/core/config"
	"github.com/colonyops/casetrack/internal/core/doctor"
	"github.com/colonyops/casetrack/internal/data/blob"
)

const doctorBucket = "doctor"

// DoctorService runs health checks on the casetrack setup.
type DoctorService struct {
	tasks  *TaskService
	blobs  *blob.Store
	config *config.Config
}

// NewDoctorService creates a new DoctorService.
func NewDoctorService(tasks *TaskService, blobs *blob.Store, cfg *config.Config) *DoctorService {
	return &DoctorService{
		tasks:  tasks,
		blobs:  blobs,
		config: cfg,
	}
}

// RunChecks executes all doctor checks and returns results.
func (d *DoctorService) RunChecks(ctx context.Context, configPath string) []doctor.Result {
	checks := []doctor.Check{
		doctor.NewConfigCheck(d.config, configPath),
		doctor.NewStoreCheck(d.config.Store.Driver, d.tasks),
		doctor.NewStorageCheck(d.config.StorageRoot(), doctorBucket, blobCheckStore{d.blobs}),
		doctor.NewRealtimeCheck(d.config.Realtime),
	}
	return doctor.RunAll(ctx, checks)
}

type blobCheckStore struct {
	store *blob.Store
}

func (p blobCheckStore) Upload(ctx context.Context, bucket string, r io.Reader, ext, contentType string) (doctor.ObjectInfo, error) {
	obj, err := p.store.Upload(ctx, bucket, r, ext, contentType)
	if err != nil {
		return doctor.ObjectInfo{}, err
	}
	return doctor.ObjectInfo{Name: obj.Name, URL: obj.URL}, nil
}

func (p blobCheckStore) Remove(ctx context.Context, bucket, name string) error {
	return p.store.Remove(ctx, bucket, name)
}
