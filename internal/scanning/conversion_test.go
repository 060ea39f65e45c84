package scanning

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/png"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("prepareImageData", func() {
	When("the image is already in a supported format", func() {
		It("should pass JPEG data through unchanged", func() {
			data := []byte("\xff\xd8\xff jpeg")
			out, mimeType, converted, err := prepareImageData(data, " IMAGE/JPEG ")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal(data))
			Expect(mimeType).To(Equal("image/jpeg"))
			Expect(converted).To(BeFalse())
		})
	})

	When("the image needs conversion", func() {
		It("should re-encode decodable images as PNG", func() {
			img := image.NewPaletted(image.Rect(0, 0, 2, 2), color.Palette{color.White, color.Black})
			var buf bytes.Buffer
			Expect(gif.Encode(&buf, img, nil)).To(Succeed())

			out, mimeType, converted, err := prepareImageData(buf.Bytes(), "image/x-unknown")
			Expect(err).NotTo(HaveOccurred())
			Expect(mimeType).To(Equal("image/png"))
			Expect(converted).To(BeTrue())

			_, err = png.Decode(bytes.NewReader(out))
			Expect(err).NotTo(HaveOccurred())
		})

		It("returns an error for undecodable data", func() {
			_, _, _, err := prepareImageData([]byte("not an image"), "image/bmp")
			Expect(err).To(MatchError(ContainSubstring("unsupported image format")))
		})
	})
})

var _ = Describe("HEIC detection", func() {
	It("should recognise the ftyp heic brand", func() {
		data := append([]byte{0, 0, 0, 24}, []byte("ftypheic0000")...)
		Expect(isHEICFormat(data)).To(BeTrue())
	})

	It("should ignore short or foreign data", func() {
		Expect(isHEICFormat([]byte("short"))).To(BeFalse())
		Expect(isHEICFormat([]byte("\x89PNG\r\n\x1a\n00000000"))).To(BeFalse())
	})

	It("should recognise HEIC MIME types", func() {
		Expect(isHEICMimeType("image/HEIC")).To(BeTrue())
		Expect(isHEICMimeType("image/heif-sequence")).To(BeTrue())
		Expect(isHEICMimeType("image/png")).To(BeFalse())
	})
})
