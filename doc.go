/*
Package guidebook runs executable documentation: a list of code leaves, each
tagged with the path of choices, imports and wizard steps it lives under.

The leaves are compiled into a tree of decisions. Before anything runs, the
engine prunes what it can: answers already stored in the profile select their
branch, validation commands that already succeed mark whole subtrees as done,
and dynamic choices expand their options by running a command. Only the
decisions left are presented to the user, one at a time, re-optimizing after
every answer. Once none is left the remaining leaves execute.

# Usage

	eng, err := guidebook.New("./docs/leaves.yaml",
		guidebook.WithPresenter(runner.NewTextPresenter(os.Stdin, os.Stdout)),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer eng.Close(context.Background())

	if err := eng.Run(ctx); err != nil && !errors.Is(err, domain.ErrInterrupted) {
		log.Fatal(err)
	}

Profiles (the stored answers) are persisted through a ports.ProfileStore; see
pkg/session for concurrent access and pkg/adapters for the file, redis and
sqlite stores.
*/
package guidebook
