package gdal

import (
	"context"
	"fmt"
	"os"
)

// MetadataItem is one KEY=VALUE dataset metadata entry.
type MetadataItem struct {
	Key   string
	Value string
}

// TranslateOptions configures a gdal_translate run.
type TranslateOptions struct {
	Format          string // output driver, e.g. "GTiff"
	OutputSRS       string // -a_srs override, e.g. "EPSG:4326"
	Metadata        []MetadataItem
	CreationOptions []string // -co values
}

// Args returns the gdal_translate arguments for src and dst.
func (o TranslateOptions) Args(src, dst string) []string {
	args := make([]string, 0, 6+2*len(o.Metadata)+2*len(o.CreationOptions))
	if o.Format != "" {
		args = append(args, "-of", o.Format)
	}
	if o.OutputSRS != "" {
		args = append(args, "-a_srs", o.OutputSRS)
	}
	for _, item := range o.Metadata {
		args = append(args, "-mo", item.Key+"="+item.Value)
	}
	for _, co := range o.CreationOptions {
		args = append(args, "-co", co)
	}
	return append(args, src, dst)
}

// Translate converts src to dst with gdal_translate. An existing dst is
// removed first.
func Translate(ctx context.Context, src, dst string, opts TranslateOptions) error {
	if err := removeIfExists(dst); err != nil {
		return err
	}

	_, _, err := Run(ctx, "gdal_translate", opts.Args(src, dst)...)
	if err != nil {
		return fmt.Errorf("gdal_translate: %w", err)
	}

	return nil
}

// ToAAIGrid converts a GDAL-readable raster to an Arc/Info ASCII Grid.
func ToAAIGrid(ctx context.Context, inputPath, outputAsc string) error {
	return Translate(ctx, inputPath, outputAsc, TranslateOptions{Format: "AAIGrid"})
}

func removeIfExists(path string) error {
	_, err := os.Stat(path)
	if err == nil {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("remove output: %w", err)
		}
		return nil
	}
	if os.IsNotExist(err) {
		return nil
	}
	return fmt.Errorf("stat output: %w", err)
}
