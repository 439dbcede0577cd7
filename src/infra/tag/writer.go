package tag

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/bogem/id3v2/v2"
	"github.com/fatyzzz/donation-media-hub/src/donation"
	"github.com/go-flac/flacpicture"
	"github.com/go-flac/flacvorbis"
	goflac "github.com/go-flac/go-flac"
)

// Writer writes donation metadata into downloaded audio files. MP3 files
// get ID3v2 frames, FLAC files get Vorbis comments; both can carry an
// embedded front cover.
type Writer struct{}

// NewWriter creates a tag writer.
func NewWriter() *Writer {
	return &Writer{}
}

// WriteTags stamps the file with the track's title, donor and source, and
// embeds coverArt (JPEG bytes, may be nil) as the front cover.
func (w *Writer) WriteTags(path string, track *donation.Track, coverArt []byte) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return w.tagMP3(path, track, coverArt)
	case ".flac":
		return w.tagFLAC(path, track, coverArt)
	default:
		return fmt.Errorf("unsupported format: %s", filepath.Ext(path))
	}
}

func (w *Writer) tagMP3(path string, track *donation.Track, coverArt []byte) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: false})
	if err != nil {
		return fmt.Errorf("failed to open MP3 file for tagging: %w", err)
	}
	defer tag.Close()

	tag.SetTitle(track.Title)
	if track.DonatedBy != "" {
		tag.SetArtist(track.DonatedBy)
	}
	tag.AddCommentFrame(id3v2.CommentFrame{
		Encoding:    id3v2.EncodingUTF8,
		Language:    "eng",
		Description: "source",
		Text:        commentFor(track),
	})

	if len(coverArt) > 0 {
		tag.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    id3v2.EncodingUTF8,
			MimeType:    "image/jpeg",
			PictureType: id3v2.PTFrontCover,
			Description: "",
			Picture:     coverArt,
		})
	}

	if err := tag.Save(); err != nil {
		return fmt.Errorf("failed to save MP3 tags: %w", err)
	}

	slog.Debug("Tagged MP3 file", "path", path, "title", track.Title)
	return nil
}

func (w *Writer) tagFLAC(path string, track *donation.Track, coverArt []byte) error {
	f, err := goflac.ParseFile(path)
	if err != nil {
		return fmt.Errorf("failed to parse FLAC file: %w", err)
	}

	var vorbisComment *flacvorbis.MetaDataBlockVorbisComment
	commentIndex := -1
	for idx, meta := range f.Meta {
		if meta.Type == goflac.VorbisComment {
			vorbisComment, err = flacvorbis.ParseFromMetaDataBlock(*meta)
			if err != nil {
				return fmt.Errorf("failed to parse Vorbis comment: %w", err)
			}
			commentIndex = idx
			break
		}
	}
	if vorbisComment == nil {
		vorbisComment = flacvorbis.New()
	}

	vorbisComment.Add(flacvorbis.FIELD_TITLE, track.Title)
	if track.DonatedBy != "" {
		vorbisComment.Add(flacvorbis.FIELD_ARTIST, track.DonatedBy)
	}
	vorbisComment.Add("COMMENT", commentFor(track))

	commentMeta := vorbisComment.Marshal()
	if commentIndex >= 0 {
		f.Meta[commentIndex] = &commentMeta
	} else {
		f.Meta = append(f.Meta, &commentMeta)
	}

	if len(coverArt) > 0 {
		pic, err := flacpicture.NewFromImageData(flacpicture.PictureTypeFrontCover, "", coverArt, "image/jpeg")
		if err != nil {
			slog.Warn("Failed to build FLAC picture block", "path", path, "error", err)
		} else {
			pictureMeta := pic.Marshal()
			f.Meta = append(f.Meta, &pictureMeta)
		}
	}

	if err := f.Save(path); err != nil {
		return fmt.Errorf("failed to save FLAC tags: %w", err)
	}

	slog.Debug("Tagged FLAC file", "path", path, "title", track.Title)
	return nil
}

// commentFor describes where a track came from, stamped into the comment
// field so files stay traceable outside the queue.
func commentFor(track *donation.Track) string {
	return fmt.Sprintf("donation via %s (%s)", track.SourceID, track.MediaRef)
}
