package models

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/golang/glog"
)

// OrphanRetention is how long an unreferenced upload is kept before it is
// considered abandoned
const OrphanRetention = 7 * 24 * time.Hour

var imageFileExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".svg":  true,
}

var (
	markdownImage = regexp.MustCompile(`!\[.*?\]\((.*?)\)`)
	htmlImage     = regexp.MustCompile(`<img[^>]+src=["']([^"']+)["']`)
	uploadPath    = regexp.MustCompile(`/uploads/[^\s"')]+`)
)

// CleanupReport summarises a run of CleanOrphanImages
type CleanupReport struct {
	DryRun          bool     `json:"dryRun"`
	TotalFiles      int      `json:"totalFiles"`
	ReferencedFiles int      `json:"referencedFiles"`
	OrphanFiles     int      `json:"orphanFiles"`
	RecentFiles     int      `json:"recentFiles"`
	DeletedFiles    int      `json:"deletedFiles"`
	DeletedSize     int64    `json:"deletedSize"`
	Errors          []string `json:"errors"`
}

// Lines renders the report for a terminal or a log
func (r CleanupReport) Lines() []string {
	verb := "Deleted"
	if r.DryRun {
		verb = "Would delete"
	}

	lines := []string{
		fmt.Sprintf("Total files:      %d", r.TotalFiles),
		fmt.Sprintf("Referenced files: %d", r.ReferencedFiles),
		fmt.Sprintf("Orphan files:     %d", r.OrphanFiles),
		fmt.Sprintf("Recent (kept):    %d", r.RecentFiles),
		fmt.Sprintf("%s:%s%d (%s)",
			verb,
			strings.Repeat(" ", 17-len(verb)),
			r.DeletedFiles,
			FormatBytes(r.DeletedSize),
		),
	}

	for i, err := range r.Errors {
		lines = append(lines, fmt.Sprintf("Error %d: %s", i+1, err))
	}

	return lines
}

// FormatBytes renders a byte count for humans
func FormatBytes(n int64) string {
	if n <= 0 {
		return "0 B"
	}
	return humanize.IBytes(uint64(n))
}

// NormalizeImagePath turns an image reference into a storage key: the query
// and fragment are dropped, as is everything up to and including /uploads/
func NormalizeImagePath(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}

	if i := strings.Index(p, UploadsURLPrefix); i >= 0 {
		p = p[i+len(UploadsURLPrefix):]
	}

	return p
}

// ExtractImagePaths adds every uploaded image content refers to into found.
// Markdown images, img tags and bare /uploads/ paths are recognised.
func ExtractImagePaths(content string, found map[string]bool) {
	for _, re := range []*regexp.Regexp{markdownImage, htmlImage} {
		for _, m := range re.FindAllStringSubmatch(content, -1) {
			if strings.Contains(m[1], UploadsURLPrefix) {
				found[NormalizeImagePath(m[1])] = true
			}
		}
	}

	for _, m := range uploadPath.FindAllString(content, -1) {
		found[NormalizeImagePath(m)] = true
	}
}

func getReferencedImages(env *Env) (map[string]bool, error) {
	rows, err := env.DB.Query(`
-- Get Article image references
SELECT content
      ,COALESCE(cover_image, '')
  FROM articles`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	found := map[string]bool{}
	for rows.Next() {
		var content, coverImage string
		err = rows.Scan(&content, &coverImage)
		if err != nil {
			return nil, err
		}

		ExtractImagePaths(content, found)
		ExtractImagePaths(coverImage, found)
	}

	return found, rows.Err()
}

// CleanOrphanImages deletes stored images that no article refers to. Images
// younger than OrphanRetention are kept, as they may belong to an article
// that is still being written. In a dry run nothing is deleted.
func CleanOrphanImages(
	ctx context.Context,
	env *Env,
	dryRun bool,
) (
	CleanupReport,
	error,
) {
	report := CleanupReport{DryRun: dryRun, Errors: []string{}}

	if env.Storage == nil {
		return report, fmt.Errorf("Uploads are not configured")
	}

	objects, err := env.Storage.List(ctx)
	if err != nil {
		glog.Errorf("Storage.List() %+v", err)
		return report, err
	}

	referenced, err := getReferencedImages(env)
	if err != nil {
		glog.Errorf("getReferencedImages() %+v", err)
		return report, err
	}

	cutoff := env.now().Add(-OrphanRetention)

	for _, obj := range objects {
		if !imageFileExtensions[strings.ToLower(path.Ext(obj.Key))] {
			continue
		}
		report.TotalFiles++

		if referenced[obj.Key] {
			report.ReferencedFiles++
			continue
		}
		report.OrphanFiles++

		if obj.ModTime.After(cutoff) {
			report.RecentFiles++
			if glog.V(2) {
				glog.Infof("Keeping recent upload %s", obj.Key)
			}
			continue
		}

		if !dryRun {
			err = env.Storage.Delete(ctx, obj.Key)
			if err != nil {
				msg := fmt.Sprintf("could not delete %s: %v", obj.Key, err)
				glog.Error(msg)
				report.Errors = append(report.Errors, msg)
				continue
			}
			glog.Infof("Deleted orphan upload %s (%s)", obj.Key, FormatBytes(obj.Size))
		}

		report.DeletedFiles++
		report.DeletedSize += obj.Size
	}

	return report, nil
}
