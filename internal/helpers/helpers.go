package helpers

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"golang.org/x/crypto/bcrypt"
)

const (
	AvatarFolder  = "avatars"
	ServiceFolder = "services"
	StoryFolder   = "stories"
)

const PasswordCost = 12

var (
	lowerRe   = regexp.MustCompile(`[a-z]`)
	upperRe   = regexp.MustCompile(`[A-Z]`)
	numberRe  = regexp.MustCompile(`\d`)
	specialRe = regexp.MustCompile(`[@$!%*?&#._-]`)
)

func IsPasswordStrong(password string) bool {
	if len(password) < 8 {
		return false
	}
	return lowerRe.MatchString(password) &&
		upperRe.MatchString(password) &&
		numberRe.MatchString(password) &&
		specialRe.MatchString(password)
}

func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// CleanID trims whitespace and stray quotes clients sometimes wrap path ids in.
func CleanID(id string) string {
	return strings.Trim(strings.TrimSpace(id), "\"'")
}

// ImageUploader stores images and returns their public URLs.
type ImageUploader interface {
	UploadImages(ctx context.Context, images []string, folder string) ([]string, error)
}

type CloudinaryUploader struct {
	cld *cloudinary.Cloudinary
}

func NewCloudinaryUploader(cld *cloudinary.Cloudinary) *CloudinaryUploader {
	return &CloudinaryUploader{cld: cld}
}

// UploadImages accepts file paths, remote URLs or data URIs. Entries that are
// already hosted https URLs are kept as they are.
func (u *CloudinaryUploader) UploadImages(ctx context.Context, images []string, folder string) ([]string, error) {
	urls := make([]string, 0, len(images))
	for _, image := range images {
		image = strings.TrimSpace(image)
		if image == "" {
			continue
		}
		if strings.HasPrefix(image, "https://") {
			urls = append(urls, image)
			continue
		}
		res, err := u.cld.Upload.Upload(ctx, image, uploader.UploadParams{
			Folder: folder,
			Tags:   []string{"isafari"},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to upload image: %w", err)
		}
		urls = append(urls, res.SecureURL)
	}
	return urls, nil
}
