package main

import (
	"context"
	"fmt"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"

	"github.com/pdiddy/manuscript-review/internal/container"
)

// Images groups the container image targets.
type Images mg.Namespace

// markitdownContext is the build context of the markitdown image. It is
// built locally from the upstream repository.
const markitdownContext = "https://github.com/microsoft/markitdown.git"

// Pull fetches the pandoc image used to render PDF and DOCX reports.
func (Images) Pull(ctx context.Context) error {
	rt, err := container.DetectRuntime(ctx)
	if err != nil {
		return err
	}
	return sh.RunV(rt.Name(), "pull", "docker.io/"+container.ImagePandoc)
}

// Markitdown builds the markitdown image used to extract PDF and DOCX text.
func (Images) Markitdown(ctx context.Context) error {
	rt, err := container.DetectRuntime(ctx)
	if err != nil {
		return err
	}
	return sh.RunV(rt.Name(), "build", "-t", container.ImageMarkitdown, markitdownContext)
}

// Check reports which images are present in the local runtime.
func (Images) Check(ctx context.Context) error {
	rt, err := container.DetectRuntime(ctx)
	if err != nil {
		return err
	}
	missing := 0
	for _, image := range []string{container.ImageMarkitdown, container.ImagePandoc} {
		if err := rt.ImageExists(ctx, image); err != nil {
			fmt.Printf("  missing  %s\n", image)
			missing++
			continue
		}
		fmt.Printf("  ok       %s\n", image)
	}
	if missing > 0 {
		return fmt.Errorf("%d image(s) missing in %s; run mage images:pull and mage images:markitdown", missing, rt.Name())
	}
	return nil
}
