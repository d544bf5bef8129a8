package services

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"agora/internal/utils"
)

func TestRequestUploadWithoutStorage(t *testing.T) {
	gdb := newTestDB(t)
	cache, _ := utils.NewQueryCache(10, time.Minute)
	svc := New(gdb, cache, nil, Options{})

	_, err := svc.Attachments.RequestUpload(bg, "u1", UploadRequest{FileName: "a.png", ContentType: "image/png", FileSize: 10})
	wantKind(t, err, ErrUnavailable, "File uploads are not configured")
}

func TestRequestUpload(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "Alice")

	ticket, err := f.svc.Attachments.RequestUpload(bg, alice.ID, UploadRequest{FileName: "Holiday.JPG", ContentType: "image/jpeg", FileSize: 2048})
	if err != nil {
		t.Fatalf("request upload: %v", err)
	}
	if !strings.HasPrefix(ticket.FileKey, "uploads/"+alice.ID+"/") || !strings.HasSuffix(ticket.FileKey, ".jpg") {
		t.Fatalf("key = %q", ticket.FileKey)
	}
	if ticket.PublicURL != "https://cdn.example.com/"+ticket.FileKey {
		t.Fatalf("public url = %q", ticket.PublicURL)
	}
	if ticket.UploadURL == "" || ticket.ExpiresIn != 3600 {
		t.Fatalf("ticket = %+v", ticket)
	}

	_, err = f.svc.Attachments.RequestUpload(bg, alice.ID, UploadRequest{FileName: "a.exe", ContentType: "application/x-msdownload", FileSize: 10})
	wantKind(t, err, ErrValidation, "Unsupported file type")

	_, err = f.svc.Attachments.RequestUpload(bg, alice.ID, UploadRequest{FileName: "big.png", ContentType: "image/png", FileSize: MaxImageSize + 1})
	wantKind(t, err, ErrValidation, "File size exceeds limit")

	if _, err := f.svc.Attachments.RequestUpload(bg, alice.ID, UploadRequest{FileName: "big.mp4", ContentType: "video/mp4", FileSize: MaxImageSize + 1}); err != nil {
		t.Fatalf("video under video limit rejected: %v", err)
	}
}

func TestRegisterAttachmentAppendsPositions(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "Alice")
	p := f.post(t, alice.ID, "gallery")

	for i := 0; i < 3; i++ {
		key := fmt.Sprintf("uploads/%s/%d.png", alice.ID, i)
		f.store.put(key, 10)
		att, err := f.svc.Attachments.Register(bg, alice.ID, AttachmentInput{PostID: p.ID, FileKey: key, MimeType: "image/png", FileSize: 10})
		if err != nil {
			t.Fatalf("register %d: %v", i, err)
		}
		if att.Position != i {
			t.Fatalf("position = %d, want %d", att.Position, i)
		}
		if att.URL != "https://cdn.example.com/"+key {
			t.Fatalf("url = %q", att.URL)
		}
	}

	got, err := f.svc.Posts.Get(bg, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Attachments) != 3 || got.Attachments[0].Position != 0 || got.Attachments[2].Position != 2 {
		t.Fatalf("attachments = %+v", got.Attachments)
	}
	if got.Attachments[1].URL == "" {
		t.Fatal("attachment url not filled")
	}
}

func TestRegisterAttachmentChecks(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "Alice")
	bob := f.user(t, "Bob")
	p := f.post(t, alice.ID, "mine")
	c := f.comment(t, alice.ID, p.ID, "", "comment")

	aliceKey := "uploads/" + alice.ID + "/a.png"
	bobKey := "uploads/" + bob.ID + "/b.png"
	f.store.put(aliceKey, 10)
	f.store.put(bobKey, 10)

	_, err := f.svc.Attachments.Register(bg, alice.ID, AttachmentInput{PostID: p.ID, CommentID: c.ID, FileKey: aliceKey, MimeType: "image/png", FileSize: 10})
	wantKind(t, err, ErrValidation, "Attach to exactly one post or comment")

	_, err = f.svc.Attachments.Register(bg, alice.ID, AttachmentInput{FileKey: aliceKey, MimeType: "image/png", FileSize: 10})
	wantKind(t, err, ErrValidation, "Attach to exactly one post or comment")

	_, err = f.svc.Attachments.Register(bg, bob.ID, AttachmentInput{PostID: p.ID, FileKey: bobKey, MimeType: "image/png", FileSize: 10})
	wantKind(t, err, ErrForbidden, "Unauthorized: You can only attach files to your own posts")

	_, err = f.svc.Attachments.Register(bg, alice.ID, AttachmentInput{PostID: p.ID, FileKey: bobKey, MimeType: "image/png", FileSize: 10})
	wantKind(t, err, ErrForbidden, "Unauthorized: You can only attach your own uploads")

	_, err = f.svc.Attachments.Register(bg, alice.ID, AttachmentInput{PostID: p.ID, FileKey: "uploads/" + alice.ID + "/missing.png", MimeType: "image/png", FileSize: 10})
	wantKind(t, err, ErrValidation, "Uploaded file not found")

	_, err = f.svc.Attachments.Register(bg, alice.ID, AttachmentInput{PostID: p.ID, FileKey: aliceKey, MimeType: "image/png", FileSize: 11})
	wantKind(t, err, ErrValidation, "File size does not match the upload")

	_, err = f.svc.Attachments.Register(bg, alice.ID, AttachmentInput{PostID: p.ID, FileKey: aliceKey, MimeType: "text/html", FileSize: 10})
	wantKind(t, err, ErrValidation, "Unsupported file type")

	if _, err := f.svc.Attachments.Register(bg, alice.ID, AttachmentInput{CommentID: c.ID, FileKey: aliceKey, MimeType: "image/png", FileSize: 10}); err != nil {
		t.Fatalf("register on comment: %v", err)
	}
	_, err = f.svc.Attachments.Register(bg, alice.ID, AttachmentInput{PostID: p.ID, FileKey: aliceKey, MimeType: "image/png", FileSize: 10})
	wantKind(t, err, ErrConflict, "File is already attached")

	list, err := f.svc.Attachments.ForComment(bg, c.ID)
	if err != nil || len(list) != 1 {
		t.Fatalf("for comment = %v, %v", list, err)
	}
}

func TestRegisterAttachmentLimit(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "Alice")
	p := f.post(t, alice.ID, "many")

	for i := 0; i <= MaxAttachmentsPerTarget; i++ {
		key := fmt.Sprintf("uploads/%s/%02d.png", alice.ID, i)
		f.store.put(key, 1)
		_, err := f.svc.Attachments.Register(bg, alice.ID, AttachmentInput{PostID: p.ID, FileKey: key, MimeType: "image/png", FileSize: 1})
		if i < MaxAttachmentsPerTarget {
			if err != nil {
				t.Fatalf("register %d: %v", i, err)
			}
			continue
		}
		wantKind(t, err, ErrValidation, "A post or comment can have at most 10 attachments")
	}
}

func TestReorderAttachments(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "Alice")
	bob := f.user(t, "Bob")
	p := f.post(t, alice.ID, "gallery")

	var ids []string
	for i := 0; i < 3; i++ {
		key := fmt.Sprintf("uploads/%s/%d.png", alice.ID, i)
		f.store.put(key, 1)
		att, err := f.svc.Attachments.Register(bg, alice.ID, AttachmentInput{PostID: p.ID, FileKey: key, MimeType: "image/png", FileSize: 1})
		if err != nil {
			t.Fatalf("register: %v", err)
		}
		ids = append(ids, att.ID)
	}

	_, err := f.svc.Attachments.Reorder(bg, bob.ID, Target{PostID: p.ID}, []string{ids[2], ids[1], ids[0]})
	wantKind(t, err, ErrForbidden, "")

	_, err = f.svc.Attachments.Reorder(bg, alice.ID, Target{PostID: p.ID}, []string{ids[0], ids[0], ids[1]})
	wantKind(t, err, ErrValidation, "Order must list every attachment exactly once")

	out, err := f.svc.Attachments.Reorder(bg, alice.ID, Target{PostID: p.ID}, []string{ids[2], ids[0], ids[1]})
	if err != nil {
		t.Fatalf("reorder: %v", err)
	}
	want := []string{ids[2], ids[0], ids[1]}
	for i := range want {
		if out[i].ID != want[i] || out[i].Position != i {
			t.Fatalf("order = %+v", out)
		}
	}
}

func TestDeleteAttachment(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "Alice")
	bob := f.user(t, "Bob")
	p := f.post(t, alice.ID, "pic")

	key := "uploads/" + alice.ID + "/pic.png"
	f.store.put(key, 5)
	att, err := f.svc.Attachments.Register(bg, alice.ID, AttachmentInput{PostID: p.ID, FileKey: key, MimeType: "image/png", FileSize: 5})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	err = f.svc.Attachments.Delete(bg, bob.ID, att.ID)
	wantKind(t, err, ErrForbidden, "Unauthorized: You can only delete your own attachments")

	if err := f.svc.Attachments.Delete(bg, alice.ID, att.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	err = f.svc.Attachments.Delete(bg, alice.ID, att.ID)
	wantKind(t, err, ErrNotFound, "Attachment not found")

	f.svc.Janitor.Flush()
	if got := f.store.deletedKeys(); len(got) != 1 || got[0] != key {
		t.Fatalf("deleted = %v", got)
	}

	list, err := f.svc.Attachments.ForPost(bg, p.ID)
	if err != nil || len(list) != 0 {
		t.Fatalf("for post = %v, %v", list, err)
	}
}
