// Package identity はKakaoTalkが保存しているマシン識別情報の読み出しを提供する。
package identity

import (
	"context"
	"fmt"
	"sort"

	"edb-forensics/internal/domain"
)

// 識別情報ストア内の値の名前。
const (
	ValueUUID   = "sys_uuid"
	ValueModel  = "hdd_model"
	ValueSerial = "hdd_serial"
)

// Provider はマシン識別情報を返す。
type Provider interface {
	Fingerprint(ctx context.Context) (domain.SystemFingerprint, error)
}

// Static は固定の識別情報を返すProvider。
type Static domain.SystemFingerprint

// Fingerprint は保持している識別情報をそのまま返す。
func (s Static) Fingerprint(ctx context.Context) (domain.SystemFingerprint, error) {
	return domain.SystemFingerprint(s), nil
}

// section は日付名のサブセクション一つ分の値。
type section struct {
	name   string
	values map[string]string
}

// selectFingerprint は三つの値が揃った最初のセクションを返す。
// セクション名は日付なので新しいものから順に見る。
func selectFingerprint(sections []section) (domain.SystemFingerprint, string, error) {
	sort.SliceStable(sections, func(i, j int) bool {
		return sections[i].name > sections[j].name
	})

	for _, s := range sections {
		fp := domain.SystemFingerprint{
			UUID:         s.values[ValueUUID],
			ModelName:    s.values[ValueModel],
			SerialNumber: s.values[ValueSerial],
		}
		if fp.UUID != "" && fp.ModelName != "" && fp.SerialNumber != "" {
			return fp, s.name, nil
		}
	}
	return domain.SystemFingerprint{}, "", fmt.Errorf("%w: no device info section holds %s, %s and %s",
		domain.ErrDecryption, ValueUUID, ValueModel, ValueSerial)
}
