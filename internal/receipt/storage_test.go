package receipt

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("LocalStorage", func() {
	var (
		ctx     context.Context
		tmpDir  string
		storage Storage
	)

	BeforeEach(func() {
		ctx = context.Background()
		tmpDir = GinkgoT().TempDir()
		var err error
		storage, err = NewLocalStorage(tmpDir, "http://localhost:8080/files/")
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Upload", func() {
		var (
			path   string
			data   []byte
			upsert bool
			url    string
			err    error
		)

		BeforeEach(func() {
			path = "receipts/a.jpg"
			data = []byte("test file content")
			upsert = true
		})

		JustBeforeEach(func() {
			url, err = storage.Upload(ctx, path, data, "image/jpeg", upsert)
		})

		When("saving succeeds", func() {
			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should return the public URL", func() {
				Expect(url).To(Equal("http://localhost:8080/files/receipts/a.jpg"))
			})

			It("should write the file under the base path", func() {
				content, err := os.ReadFile(filepath.Join(tmpDir, "receipts", "a.jpg"))
				Expect(err).NotTo(HaveOccurred())
				Expect(content).To(Equal(data))
			})
		})

		When("the path has spaces", func() {
			BeforeEach(func() {
				path = "receipts/my receipt.jpg"
			})

			It("should escape the URL", func() {
				Expect(url).To(Equal("http://localhost:8080/files/receipts/my%20receipt.jpg"))
			})
		})

		When("the file already exists", func() {
			BeforeEach(func() {
				_, err := storage.Upload(ctx, path, []byte("old"), "image/jpeg", true)
				Expect(err).NotTo(HaveOccurred())
			})

			When("upsert is enabled", func() {
				It("should overwrite it", func() {
					Expect(err).NotTo(HaveOccurred())
					content, err := storage.Get(ctx, path)
					Expect(err).NotTo(HaveOccurred())
					Expect(content).To(Equal(data))
				})
			})

			When("upsert is disabled", func() {
				BeforeEach(func() {
					upsert = false
				})

				It("returns an error and keeps the old content", func() {
					Expect(err).To(MatchError(ContainSubstring("file already exists")))
					content, err := storage.Get(ctx, path)
					Expect(err).NotTo(HaveOccurred())
					Expect(content).To(Equal([]byte("old")))
				})
			})
		})

		When("the path tries to escape the base path", func() {
			BeforeEach(func() {
				path = "../../outside.txt"
			})

			It("should keep the file inside the base path", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(filepath.Join(tmpDir, "outside.txt")).To(BeAnExistingFile())
				Expect(url).To(Equal("http://localhost:8080/files/outside.txt"))
			})
		})

		When("the path is empty", func() {
			BeforeEach(func() {
				path = ""
			})

			It("returns an error", func() {
				Expect(err).To(MatchError(ContainSubstring("invalid storage path")))
			})
		})
	})

	Describe("Get", func() {
		When("the file does not exist", func() {
			It("returns an error", func() {
				_, err := storage.Get(ctx, "receipts/missing.jpg")
				Expect(err).To(HaveOccurred())
			})
		})
	})
})

var _ = Describe("gcsPublicURL", func() {
	It("builds the public object URL", func() {
		Expect(gcsPublicURL("my-bucket", "receipts/a b.jpg")).To(Equal("https://storage.googleapis.com/my-bucket/receipts/a%20b.jpg"))
	})
})
