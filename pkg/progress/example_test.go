package progress_test

import (
	"fmt"

	"github.com/matzehuels/craftlaunch/pkg/progress"
)

func ExampleProgress_Percentage() {
	events := []progress.Progress{
		{Stage: progress.DownloadingLibraries, Current: 0, Total: 40},
		{Stage: progress.DownloadingLibraries, Current: 20, Total: 40},
		{Stage: progress.DownloadingAssets, Current: 900, Total: 1000},
		{Stage: progress.ValidatingJava},
		{Stage: progress.Complete},
	}
	for _, p := range events {
		fmt.Printf("%-22s %5.1f\n", p.Stage, p.Percentage())
	}
	// Output:
	// downloading-libraries   10.0
	// downloading-libraries   15.0
	// downloading-assets      49.0
	// validating-java         60.0
	// complete               100.0
}
