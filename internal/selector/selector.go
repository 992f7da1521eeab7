package selector

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/charmbracelet/log"
	"go.trai.ch/zerr"

	"github.com/shinji-kodama/pkgbridge/internal/model"
)

// Directory is the subset of the distrobox client the selector needs.
// *distrobox.Client satisfies it.
type Directory interface {
	List(ctx context.Context) []model.ContainerRecord
	Classify(ctx context.Context, name string) (model.Family, error)
	Create(ctx context.Context, name, image string) error
}

// Prompter asks the user questions during selection. It is only consulted
// when the selector is interactive.
type Prompter interface {
	// Choose presents the numbered matches and returns the zero-based
	// index picked by the user. ok is false for an invalid answer.
	Choose(matches []model.SelectedContainer) (index int, ok bool)

	// Confirm asks a yes/no question.
	Confirm(question string) bool
}

// Request describes one selection.
type Request struct {
	Format        model.PackageFormat // format of the package being installed
	Family        model.Family        // explicit family override; empty for none
	Container     string              // explicit container name; empty for none
	AllowCreate   bool                // create the default container without asking
	ImageOverride string              // base image used when creating
	DryRun        bool                // report the would-be selection without creating
}

// Selector combines discovery, classification and the selection policy.
type Selector struct {
	dir         Directory
	prompter    Prompter
	interactive bool
	logger      *log.Logger
	out         io.Writer
}

// New creates a Selector. prompter may be nil when interactive is false.
// Progress messages (such as container creation) are written to out.
func New(dir Directory, prompter Prompter, interactive bool, logger *log.Logger, out io.Writer) *Selector {
	return &Selector{
		dir:         dir,
		prompter:    prompter,
		interactive: interactive && prompter != nil,
		logger:      logger,
		out:         out,
	}
}

// Select resolves req into exactly one container.
//
// Errors:
//   - model.ErrNotFound: the explicit container does not exist
//   - model.ErrClassificationFailure: the explicit container cannot be classified
//   - model.ErrNoMatchFound: no usable container and creation was not allowed,
//     or several matches that the user did not disambiguate
func (s *Selector) Select(ctx context.Context, req Request) (model.SelectedContainer, error) {
	if req.ImageOverride != "" {
		if err := ValidateImage(req.ImageOverride); err != nil {
			return model.SelectedContainer{}, err
		}
	}

	boxes := s.dir.List(ctx)

	// Step 1: An explicit name bypasses family filtering.
	if req.Container != "" {
		return s.selectExplicit(ctx, boxes, req.Container)
	}

	// Step 2: Candidate families come from the override or the format.
	families := candidateFamilies(req)
	if len(families) == 0 {
		return model.SelectedContainer{}, zerr.Wrap(model.ErrNoMatchFound, "no candidate family; pass --family")
	}

	// Step 3: Classify every discovered container.
	matches := s.matching(ctx, boxes, families)

	// Step 4: One match needs no interaction.
	if len(matches) == 1 {
		return matches[0], nil
	}

	// Step 5: Several matches are resolved by the user or not at all.
	if len(matches) > 1 {
		return s.disambiguate(matches)
	}

	// Step 6: Nothing matched.
	return s.createDefault(ctx, families[0], req)
}

func (s *Selector) selectExplicit(ctx context.Context, boxes []model.ContainerRecord, name string) (model.SelectedContainer, error) {
	found := slices.ContainsFunc(boxes, func(b model.ContainerRecord) bool { return b.Name == name })
	if !found {
		return model.SelectedContainer{}, zerr.With(zerr.Wrap(model.ErrNotFound, "container '"+name+"' not found"), "box", name)
	}

	family, err := s.dir.Classify(ctx, name)
	if err != nil {
		return model.SelectedContainer{}, err
	}
	return model.SelectedContainer{Name: name, Family: family}, nil
}

// matching classifies each container and keeps those in families.
// Containers that cannot be classified are logged and skipped.
func (s *Selector) matching(ctx context.Context, boxes []model.ContainerRecord, families []model.Family) []model.SelectedContainer {
	var matches []model.SelectedContainer
	for _, b := range boxes {
		family, err := s.dir.Classify(ctx, b.Name)
		if err != nil {
			s.logger.Debug("skipping unclassifiable container", "box", b.Name, "error", err)
			continue
		}
		if slices.Contains(families, family) {
			matches = append(matches, model.SelectedContainer{Name: b.Name, Family: family})
		}
	}
	return matches
}

func (s *Selector) disambiguate(matches []model.SelectedContainer) (model.SelectedContainer, error) {
	if s.interactive {
		if i, ok := s.prompter.Choose(matches); ok && i >= 0 && i < len(matches) {
			return matches[i], nil
		}
	}

	names := make([]string, len(matches))
	for i, m := range matches {
		names[i] = m.Name
	}
	return model.SelectedContainer{}, zerr.With(
		zerr.Wrap(model.ErrNoMatchFound, fmt.Sprintf("%d matching boxes found; specify one with --container or --family", len(matches))),
		"matches", names,
	)
}

func (s *Selector) createDefault(ctx context.Context, family model.Family, req Request) (model.SelectedContainer, error) {
	box := DefaultBoxFor(family, req.ImageOverride)

	create := req.AllowCreate
	if !create && s.interactive {
		create = s.prompter.Confirm(fmt.Sprintf("No matching box found. Create '%s' from '%s'?", box.Name, box.Image))
	}
	if !create {
		return model.SelectedContainer{}, zerr.Wrap(model.ErrNoMatchFound,
			"no matching box found; rerun with --create or specify --container/--family")
	}

	selected := model.SelectedContainer{Name: box.Name, Family: family}
	if req.DryRun {
		fmt.Fprintf(s.out, "Would create '%s' from '%s'\n", box.Name, box.Image)
		return selected, nil
	}

	fmt.Fprintf(s.out, "No matching box found. Creating '%s' from '%s'...\n", box.Name, box.Image)
	if err := s.dir.Create(ctx, box.Name, box.Image); err != nil {
		return model.SelectedContainer{}, err
	}
	return selected, nil
}

func candidateFamilies(req Request) []model.Family {
	if req.Family != "" {
		return []model.Family{req.Family}
	}
	return req.Format.CandidateFamilies()
}
