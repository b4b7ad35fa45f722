package guidebook_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/guidebook"
	"github.com/aretw0/guidebook/pkg/dsl"
	"github.com/aretw0/guidebook/pkg/runner"
)

func Example() {
	ctx := context.Background()

	b := dsl.New()
	b.Choice("os", 0, "Linux").Leaf("apt").Shell("true")
	b.Choice("os", 1, "macOS").Leaf("brew").Shell("true")
	loader, err := b.Build()
	if err != nil {
		log.Fatal(err)
	}

	eng, err := guidebook.New("",
		guidebook.WithLoader(loader),
		guidebook.WithPresenter(runner.NewScriptedPresenter(map[string]string{"os": "macOS"})),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer eng.Close(ctx)

	if err := eng.Run(ctx); err != nil {
		log.Fatal(err)
	}
	answer, _ := eng.State().Get("os")
	fmt.Println(answer)
	// Output: macOS
}

func ExampleEngine_Plan() {
	ctx := context.Background()

	b := dsl.New()
	b.Choice("db", 0, "Postgres").Leaf("pg").Shell("createdb app")
	b.Choice("db", 1, "SQLite").Leaf("lite").Shell("touch app.db")
	loader, err := b.Build()
	if err != nil {
		log.Fatal(err)
	}

	eng, err := guidebook.New("", guidebook.WithLoader(loader))
	if err != nil {
		log.Fatal(err)
	}

	plan, err := eng.Plan(ctx)
	if err != nil {
		log.Fatal(err)
	}
	next := plan.Next()
	fmt.Println(next.Context, len(next.Parts))
	// Output: db 2
}
