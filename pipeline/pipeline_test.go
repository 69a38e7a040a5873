package pipeline

import (
	"context"
	"testing"

	"impuls.dev/impuls/db"
	"impuls.dev/impuls/model"
)

type insertAgencyTask struct{ agency model.Agency }

func (t *insertAgencyTask) Name() string { return "insert-agency" }

func (t *insertAgencyTask) Execute(ctx context.Context, rt *Runtime) error {
	return db.CreateEntity(ctx, rt.DB, t.agency)
}

type failingTask struct{}

func (failingTask) Name() string                                  { return "failing" }
func (failingTask) Execute(ctx context.Context, rt *Runtime) error { return errBoom }

var errBoom = &boomError{}

type boomError struct{}

func (*boomError) Error() string { return "boom" }

func TestPipelineRunsTasksSequentially(t *testing.T) {
	p, err := New("test", []Task{
		&insertAgencyTask{agency: model.Agency{ID: "1", Name: "A", URL: "https://a.example", Timezone: "UTC"}},
	}, nil, Options{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	if err := p.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	got, err := db.RetrieveMust(context.Background(), p.DB(), model.AgencyFromRow, "agencies", model.Agency{}.SQLColumns(), "agency_id = ?", "1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "A" {
		t.Fatalf("got %+v", got)
	}
}

func TestPipelineRollsBackFailingTask(t *testing.T) {
	p, err := New("test", []Task{failingTask{}}, nil, Options{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	if err := p.Run(context.Background()); err == nil {
		t.Fatal("expected error from failing task")
	}
}
