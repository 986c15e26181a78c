package sqlinline

const QEnqueueBatchJob = `--sql aeaf3334-77e6-4d40-9b4e-84fd1c13d6c1
insert into batch_jobs(id, phases, payload_json, status, created_at, updated_at)
values (gen_random_uuid(), $1::int[], $2::jsonb, 'QUEUED', now(), now())
returning id;
`

const QClaimBatchJob = `--sql 26e5d81d-cdd5-4b2e-82f7-0730e8712968
with next_job as (
    select id
    from batch_jobs
    where status = 'QUEUED'
    order by created_at asc
    for update skip locked
    limit 1
),
updated as (
    update batch_jobs
    set status = 'RUNNING', updated_at = now()
    where id in (select id from next_job)
    returning id, phases, payload_json
)
select * from updated;
`

const QFinishBatchJob = `--sql fac039f5-7cf1-4519-89e6-e55bc0087140
update batch_jobs
set status = $2::text, report_json = $3::jsonb, updated_at = now()
where id = $1::uuid;
`

const QSelectBatchJob = `--sql 2573bc0c-5f08-4552-a78e-dd1368a1c720
select id, phases, payload_json, status, report_json, created_at, updated_at
from batch_jobs
where id = $1::uuid
limit 1;
`
